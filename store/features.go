package store

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Control parameters are reserved and never become filter conditions.
// Known limitation: a resource field literally named like one of these can
// never be filtered on.
var reservedParams = map[string]struct{}{
	"page":   {},
	"sort":   {},
	"limit":  {},
	"fields": {},
}

var comparisonOps = map[string]struct{}{
	"gte": {},
	"gt":  {},
	"lte": {},
	"lt":  {},
}

// Pagination defaults
const (
	DefaultPage  = int64(1)
	DefaultLimit = int64(100)
)

// Features shapes a flat query string into an executable mongodb find
// command: filter, sort, field selection and pagination. Every method
// mutates and returns the same instance so the steps chain, a skipped step
// keeps its default.
type Features struct {
	params     url.Values
	filter     bson.D
	sort       bson.D
	projection bson.D
	skip       int64
	limit      int64
}

// NewFeatures creates a Features for the given request parameters
func NewFeatures(params url.Values) *Features {
	return &Features{
		params: params,
		filter: bson.D{},
		sort:   bson.D{primitive.E{Key: "_id", Value: 1}},
		skip:   0,
		limit:  DefaultLimit,
	}
}

// Filter builds the filter document from every non-reserved parameter.
// A `field[gte|gt|lte|lt]=value` parameter becomes the matching comparison
// operator, anything else is an equality condition. The base conditions are
// supplied by the caller (nested route scoping, standing filters) and are
// never inferred from the query string.
func (f *Features) Filter(base bson.D) *Features {
	f.filter = append(bson.D{}, base...)

	names := make([]string, 0, len(f.params))
	for name := range f.params {
		names = append(names, name)
	}
	sort.Strings(names)

	compare := make(map[string]bson.D)
	for _, name := range names {
		if _, ok := reservedParams[name]; ok {
			continue
		}

		field, op := splitOperator(name)
		value := coerceValue(f.params.Get(name))

		if op == "" {
			f.filter = append(f.filter, primitive.E{Key: field, Value: value})
			continue
		}
		compare[field] = append(compare[field], primitive.E{Key: "$" + op, Value: value})
	}

	fields := make([]string, 0, len(compare))
	for field := range compare {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		f.filter = append(f.filter, primitive.E{Key: field, Value: compare[field]})
	}

	return f
}

// Sort translates the comma separated sort parameter into a multi key sort
// specification, a `-` prefix means descending. Without the parameter the
// result is sorted by id ascending so that pagination stays stable.
func (f *Features) Sort() *Features {
	raw := f.params.Get("sort")
	if raw == "" {
		return f
	}

	spec := bson.D{}
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		order := 1
		if strings.HasPrefix(field, "-") {
			order = -1
			field = field[1:]
		}
		spec = append(spec, primitive.E{Key: field, Value: order})
	}

	if len(spec) > 0 {
		f.sort = spec
	}
	return f
}

// LimitFields translates the comma separated fields parameter into a
// projection, a `-` prefix excludes the field. Without the parameter all
// fields are returned.
func (f *Features) LimitFields() *Features {
	raw := f.params.Get("fields")
	if raw == "" {
		return f
	}

	projection := bson.D{}
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		include := 1
		if strings.HasPrefix(field, "-") {
			include = 0
			field = field[1:]
		}
		projection = append(projection, primitive.E{Key: field, Value: include})
	}

	f.projection = projection
	return f
}

// Paginate converts the 1-based page and the limit parameters into a
// skip/limit pair. Missing or non numeric values fall back to the defaults.
func (f *Features) Paginate() *Features {
	page := intParam(f.params.Get("page"), DefaultPage)
	limit := intParam(f.params.Get("limit"), DefaultLimit)
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	f.skip = (page - 1) * limit
	f.limit = limit
	return f
}

// Skip returns the computed number of documents to skip
func (f *Features) Skip() int64 {
	return f.skip
}

// Limit returns the computed page size
func (f *Features) Limit() int64 {
	return f.limit
}

// FindCommand assembles the find command for the given collection
func (f *Features) FindCommand(collection string) bson.D {
	cmd := bson.D{
		primitive.E{Key: "find", Value: collection},
		primitive.E{Key: "filter", Value: f.filter},
		primitive.E{Key: "sort", Value: f.sort},
		primitive.E{Key: "skip", Value: f.skip},
		primitive.E{Key: "limit", Value: f.limit},
	}
	if len(f.projection) > 0 {
		cmd = append(cmd, primitive.E{Key: "projection", Value: f.projection})
	}
	return cmd
}

// Pipeline assembles the shaped steps as aggregation stages so a caller can
// append stages of its own, a $lookup for example, before running it
func (f *Features) Pipeline() []bson.D {
	pipeline := []bson.D{
		{primitive.E{Key: "$match", Value: f.filter}},
		{primitive.E{Key: "$sort", Value: f.sort}},
		{primitive.E{Key: "$skip", Value: f.skip}},
		{primitive.E{Key: "$limit", Value: f.limit}},
	}
	if len(f.projection) > 0 {
		pipeline = append(pipeline, bson.D{primitive.E{Key: "$project", Value: f.projection}})
	}
	return pipeline
}

// AggregateCommand wraps a pipeline into a runnable aggregate command
func AggregateCommand(collection string, pipeline []bson.D) bson.D {
	return bson.D{
		primitive.E{Key: "aggregate", Value: collection},
		primitive.E{Key: "pipeline", Value: pipeline},
		primitive.E{Key: "cursor", Value: bson.D{}},
	}
}

// CountCommand assembles the count command matching the filter step
func (f *Features) CountCommand(collection string) bson.D {
	return bson.D{
		primitive.E{Key: "count", Value: collection},
		primitive.E{Key: "query", Value: f.filter},
	}
}

// PageRequested reports whether the caller asked for an explicit page
func PageRequested(params url.Values) bool {
	return params.Get("page") != ""
}

// SkipOf computes the skip the pagination step would use, without building
// the whole Features chain
func SkipOf(params url.Values) int64 {
	return NewFeatures(params).Paginate().Skip()
}

// splitOperator splits "duration[gte]" into "duration" and "gte". Anything
// that is not one of the four comparison operators stays a plain field name.
func splitOperator(name string) (field, op string) {
	open := strings.IndexByte(name, '[')
	if open <= 0 || !strings.HasSuffix(name, "]") {
		return name, ""
	}

	candidate := name[open+1 : len(name)-1]
	if _, ok := comparisonOps[candidate]; !ok {
		return name, ""
	}
	return name[:open], candidate
}

// coerceValue converts a raw query value the way a json body would be
// decoded: numbers and booleans keep their type, everything else stays a
// string
func coerceValue(raw string) interface{} {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func intParam(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
