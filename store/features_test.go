package store_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/E-Bousk/natours/store"
)

func findCommand(params url.Values, base bson.D) bson.D {
	return store.NewFeatures(params).
		Filter(base).
		Sort().
		LimitFields().
		Paginate().
		FindCommand(store.TourCollection)
}

func commandPart(t *testing.T, cmd bson.D, key string) interface{} {
	t.Helper()
	for _, e := range cmd {
		if e.Key == key {
			return e.Value
		}
	}
	t.Fatalf("command has no %q part", key)
	return nil
}

func TestFeatures_Filter(t *testing.T) {
	cases := []struct {
		description string
		params      url.Values
		base        bson.D
		expected    bson.D
	}{
		{
			description: "no parameters, empty filter",
			params:      url.Values{},
			expected:    bson.D{},
		},
		{
			description: "equality condition keeps numeric type",
			params:      url.Values{"duration": {"5"}},
			expected:    bson.D{primitive.E{Key: "duration", Value: float64(5)}},
		},
		{
			description: "string and boolean values",
			params:      url.Values{"difficulty": {"easy"}, "secret_tour": {"false"}},
			expected: bson.D{
				primitive.E{Key: "difficulty", Value: "easy"},
				primitive.E{Key: "secret_tour", Value: false},
			},
		},
		{
			description: "bracket operator becomes comparison",
			params:      url.Values{"duration[gte]": {"5"}},
			expected: bson.D{
				primitive.E{Key: "duration", Value: bson.D{primitive.E{Key: "$gte", Value: float64(5)}}},
			},
		},
		{
			description: "unknown operator stays a field name",
			params:      url.Values{"duration[foo]": {"5"}},
			expected:    bson.D{primitive.E{Key: "duration[foo]", Value: float64(5)}},
		},
		{
			description: "reserved parameters are never conditions",
			params:      url.Values{"page": {"2"}, "sort": {"price"}, "limit": {"10"}, "fields": {"name"}, "price": {"397"}},
			expected:    bson.D{primitive.E{Key: "price", Value: float64(397)}},
		},
		{
			description: "base conditions come first",
			params:      url.Values{"price[lt]": {"500"}},
			base:        bson.D{primitive.E{Key: "secret_tour", Value: bson.D{primitive.E{Key: "$ne", Value: true}}}},
			expected: bson.D{
				primitive.E{Key: "secret_tour", Value: bson.D{primitive.E{Key: "$ne", Value: true}}},
				primitive.E{Key: "price", Value: bson.D{primitive.E{Key: "$lt", Value: float64(500)}}},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			cmd := findCommand(tc.params, tc.base)
			assert.Equal(t, tc.expected, commandPart(t, cmd, "filter"))
		})
	}
}

func TestFeatures_Sort(t *testing.T) {
	t.Run("default sort is id ascending", func(t *testing.T) {
		cmd := findCommand(url.Values{}, nil)
		assert.Equal(t, bson.D{primitive.E{Key: "_id", Value: 1}}, commandPart(t, cmd, "sort"))
	})

	t.Run("minus prefix sorts descending", func(t *testing.T) {
		cmd := findCommand(url.Values{"sort": {"-price,name"}}, nil)
		expected := bson.D{
			primitive.E{Key: "price", Value: -1},
			primitive.E{Key: "name", Value: 1},
		}
		assert.Equal(t, expected, commandPart(t, cmd, "sort"))
	})
}

func TestFeatures_LimitFields(t *testing.T) {
	t.Run("no fields parameter, no projection", func(t *testing.T) {
		cmd := findCommand(url.Values{}, nil)
		for _, e := range cmd {
			assert.NotEqual(t, "projection", e.Key)
		}
	})

	t.Run("field list becomes inclusion projection", func(t *testing.T) {
		cmd := findCommand(url.Values{"fields": {"name,price"}}, nil)
		expected := bson.D{
			primitive.E{Key: "name", Value: 1},
			primitive.E{Key: "price", Value: 1},
		}
		assert.Equal(t, expected, commandPart(t, cmd, "projection"))
	})

	t.Run("minus prefix excludes the field", func(t *testing.T) {
		cmd := findCommand(url.Values{"fields": {"-description"}}, nil)
		expected := bson.D{primitive.E{Key: "description", Value: 0}}
		assert.Equal(t, expected, commandPart(t, cmd, "projection"))
	})
}

func TestFeatures_Paginate(t *testing.T) {
	cases := []struct {
		description  string
		params       url.Values
		expectedSkip int64
		expectedLim  int64
	}{
		{"defaults", url.Values{}, 0, store.DefaultLimit},
		{"page three of ten", url.Values{"page": {"3"}, "limit": {"10"}}, 20, 10},
		{"first page", url.Values{"page": {"1"}, "limit": {"25"}}, 0, 25},
		{"garbage falls back", url.Values{"page": {"abc"}, "limit": {"-3"}}, 0, store.DefaultLimit},
	}

	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			cmd := findCommand(tc.params, nil)
			assert.Equal(t, tc.expectedSkip, commandPart(t, cmd, "skip"))
			assert.Equal(t, tc.expectedLim, commandPart(t, cmd, "limit"))
		})
	}
}

func TestFeatures_Pipeline(t *testing.T) {
	pipeline := store.NewFeatures(url.Values{"rating": {"5"}, "page": {"2"}, "limit": {"10"}}).
		Filter(nil).
		Sort().
		LimitFields().
		Paginate().
		Pipeline()

	expected := []bson.D{
		{primitive.E{Key: "$match", Value: bson.D{primitive.E{Key: "rating", Value: float64(5)}}}},
		{primitive.E{Key: "$sort", Value: bson.D{primitive.E{Key: "_id", Value: 1}}}},
		{primitive.E{Key: "$skip", Value: int64(10)}},
		{primitive.E{Key: "$limit", Value: int64(10)}},
	}
	assert.Equal(t, expected, pipeline)
}

func TestSkipOf(t *testing.T) {
	assert.Equal(t, int64(0), store.SkipOf(url.Values{}))
	assert.Equal(t, int64(20), store.SkipOf(url.Values{"page": {"3"}, "limit": {"10"}}))
	assert.False(t, store.PageRequested(url.Values{"limit": {"10"}}))
	assert.True(t, store.PageRequested(url.Values{"page": {"3"}}))
}
