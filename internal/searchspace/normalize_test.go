package searchspace

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/copyleftdev/hypertune/internal/errors"
	"github.com/copyleftdev/hypertune/internal/hyperparam"
)

func uniform(name string, data ...interface{}) hyperparam.Entry {
	return hyperparam.Entry{Name: name, Domain: hyperparam.DomainUniform, Type: hyperparam.TypeFloat, Data: data}
}

func categorical(name string, data ...interface{}) hyperparam.Entry {
	return hyperparam.Entry{Name: name, Domain: hyperparam.DomainCategorical, Data: data}
}

func TestNormalizeUniformOnly(t *testing.T) {
	tests := []struct {
		name string
		spec *hyperparam.Spec
		want map[string]interface{}
	}{
		{
			name: "step is discarded",
			spec: hyperparam.MustSpec(uniform("x", 1, 5, 0.1)),
			want: map[string]interface{}{"x": []float64{1, 5}},
		},
		{
			name: "two bounds",
			spec: hyperparam.MustSpec(uniform("x", 1, 5), uniform("y", -1.5, 2.5)),
			want: map[string]interface{}{"x": []float64{1, 5}, "y": []float64{-1.5, 2.5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			space, err := Normalize(tt.spec, nil)
			require.NoError(t, err)
			assert.True(t, space.IsLeaf())
			assert.Equal(t, tt.want, space.ToMap())
		})
	}
}

func TestNormalizeBadBounds(t *testing.T) {
	tests := []struct {
		name string
		data []interface{}
	}{
		{name: "empty", data: nil},
		{name: "one element", data: []interface{}{1}},
		{name: "four elements", data: []interface{}{1, 2, 3, 4}},
		{name: "non numeric", data: []interface{}{"a", 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			spec := hyperparam.MustSpec(categorical("c", 1, 2), uniform("x", tt.data...))

			space, err := Normalize(spec, zap.New(core))
			require.Error(t, err)
			assert.Nil(t, space)
			assert.True(t, errors.Is(err, errors.ErrPrecondition))

			var e *errors.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, "x", e.Param)

			entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
			require.Len(t, entries, 1)
			assert.Equal(t, "x", entries[0].ContextMap()["param"])
		})
	}
}

func TestNormalizeCategoricalWrapsUniform(t *testing.T) {
	spec := hyperparam.MustSpec(categorical("a", 0, 1), uniform("b", 0, 10))

	space, err := Normalize(spec, nil)
	require.NoError(t, err)

	want := map[string]interface{}{
		"a": map[interface{}]interface{}{
			0: map[string]interface{}{"b": []float64{0, 10}},
			1: map[string]interface{}{"b": []float64{0, 10}},
		},
	}
	assert.Equal(t, want, space.ToMap())
}

func TestNormalizeNestingFollowsSpecOrder(t *testing.T) {
	spec := hyperparam.MustSpec(
		categorical("a", 0, 1),
		uniform("b", 0, 10),
		categorical("c", "x", "y"),
	)

	space, err := Normalize(spec, nil)
	require.NoError(t, err)

	leaf := map[string]interface{}{"b": []float64{0, 10}}
	aLevel := map[string]interface{}{
		"a": map[interface{}]interface{}{0: leaf, 1: leaf},
	}
	want := map[string]interface{}{
		"c": map[interface{}]interface{}{"x": aLevel, "y": aLevel},
	}
	assert.Equal(t, want, space.ToMap())

	assert.Equal(t, "c", space.Param())
	levels := space.Levels()
	require.Len(t, levels, 2)
	assert.Equal(t, Level{Param: "c", Values: []interface{}{"x", "y"}}, levels[0])
	assert.Equal(t, Level{Param: "a", Values: []interface{}{0, 1}}, levels[1])

	// Reversing declaration order reverses the nesting.
	reversed, err := Normalize(hyperparam.MustSpec(
		categorical("c", "x", "y"),
		categorical("a", 0, 1),
		uniform("b", 0, 10),
	), nil)
	require.NoError(t, err)
	assert.Equal(t, "a", reversed.Param())
}

func TestNormalizeUnsupportedDomainWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	spec := hyperparam.MustSpec(
		hyperparam.Entry{Name: "lr", Domain: "loguniform", Type: hyperparam.TypeFloat, Data: []interface{}{0.001, 1}},
	)

	space, err := Normalize(spec, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"lr": []float64{0.001, 1}}, space.ToMap())

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "loguniform", entries[0].ContextMap()["domain"])
	assert.Equal(t, string(errors.KindUnsupportedDomain), entries[0].ContextMap()["kind"])
}

func TestNormalizeEmptyCategorical(t *testing.T) {
	spec := hyperparam.MustSpec(categorical("a"), uniform("b", 0, 1))

	space, err := Normalize(spec, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": map[interface{}]interface{}{}}, space.ToMap())
	assert.Empty(t, space.Leaves())
	assert.Nil(t, space.Uniform())
}

func TestNormalizeDuplicateCategoricalValues(t *testing.T) {
	spec := hyperparam.MustSpec(categorical("a", "x", "y", "x"))

	space, err := Normalize(spec, nil)
	require.NoError(t, err)
	require.Len(t, space.Choices(), 2)
	assert.Equal(t, "x", space.Choices()[0].Value)
	assert.Equal(t, "y", space.Choices()[1].Value)
}

func TestNormalizeRejectsUnhashableChoice(t *testing.T) {
	spec := hyperparam.MustSpec(categorical("a", []interface{}{1, 2}))

	_, err := Normalize(spec, nil)
	assert.True(t, errors.Is(err, errors.ErrPrecondition))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	spec := hyperparam.MustSpec(
		categorical("kernel", "linear", "rbf"),
		uniform("C", 0.1, 10),
		categorical("degree", 2, 3),
		uniform("gamma", 0, 1, 0.1),
	)
	n := NewNormalizer(nil)

	first, err := n.Normalize(spec)
	require.NoError(t, err)
	second, err := n.Normalize(spec)
	require.NoError(t, err)

	assert.Equal(t, first.ToMap(), second.ToMap())
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"kernel", "C", "degree", "gamma"}, spec.Names())
}

func TestSplit(t *testing.T) {
	spec := hyperparam.MustSpec(
		uniform("x", 0, 1),
		categorical("c", 1),
		hyperparam.Entry{Name: "n", Domain: "normal", Data: []interface{}{0, 1}},
	)

	cat, uni := NewNormalizer(nil).Split(spec)
	require.Len(t, cat, 1)
	require.Len(t, uni, 2)
	assert.Equal(t, "c", cat[0].Name)
	assert.Equal(t, "x", uni[0].Name)
	assert.Equal(t, "n", uni[1].Name)
}

func TestSpaceLeavesAndJSON(t *testing.T) {
	spec := hyperparam.MustSpec(
		categorical("a", 0, 1),
		uniform("b", 0, 10),
		categorical("c", "x", "y"),
	)
	space, err := Normalize(spec, nil)
	require.NoError(t, err)

	leaves := space.Leaves()
	require.Len(t, leaves, 4)
	assert.Equal(t, []Assignment{{Param: "c", Value: "x"}, {Param: "a", Value: 0}}, leaves[0].Assignments)
	assert.Equal(t, []Assignment{{Param: "c", Value: "y"}, {Param: "a", Value: 1}}, leaves[3].Assignments)
	assert.Equal(t, []Bound{{Name: "b", Bounds: Bounds{Low: 0, High: 10}}}, leaves[2].Bounds)
	assert.Equal(t, leaves[2].Bounds, space.Uniform())

	out, err := json.Marshal(space)
	require.NoError(t, err)
	assert.Equal(t,
		`{"c":{"x":{"a":{"0":{"b":[0,10]},"1":{"b":[0,10]}}},"y":{"a":{"0":{"b":[0,10]},"1":{"b":[0,10]}}}}}`,
		string(out))
}
