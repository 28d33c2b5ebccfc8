package category

import (
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Tag
	}{
		{in: "food", want: Food},
		{in: "FOOD", want: Food},
		{in: "  Legal ", want: Legal},
		{in: "Transport", want: Transport},
		{in: "furniture", want: Furniture},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Unknown(t *testing.T) {
	for _, in := range []string{"", "all", "weapons", "foods"} {
		_, err := Parse(in)
		require.Error(t, err, in)
		assert.True(t, eris.Is(err, ErrInvalidCategory), in)
	}
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = ParseFilter("ALL")
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = ParseFilter("health")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, Health, *f)

	_, err = ParseFilter("cooking")
	assert.True(t, eris.Is(err, ErrInvalidCategory))
}

func TestAll_DeclarationOrder(t *testing.T) {
	tags := All()
	require.Len(t, tags, 10)
	assert.Equal(t, Food, tags[0])
	assert.Equal(t, Transport, tags[9])

	// Mutating the copy must not leak into the package.
	tags[0] = "x"
	assert.Equal(t, Food, All()[0])
}

func TestSet_Intersects(t *testing.T) {
	tests := []struct {
		name string
		a, b Set
		want bool
	}{
		{name: "shared tag", a: NewSet(Legal, Housing), b: NewSet(Food, Legal), want: true},
		{name: "disjoint", a: NewSet(Health), b: NewSet(Food, Legal), want: false},
		{name: "empty left", a: NewSet(), b: NewSet(Food), want: false},
		{name: "both empty", a: NewSet(), b: NewSet(), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Intersects(tt.b))
			assert.Equal(t, tt.want, tt.b.Intersects(tt.a))
		})
	}
}

func TestParseSet(t *testing.T) {
	s, err := ParseSet([]string{"Food", "legal", "food"})
	require.NoError(t, err)
	assert.Len(t, s, 2)
	assert.True(t, s.Has(Food))
	assert.True(t, s.Has(Legal))

	_, err = ParseSet([]string{"food", "bogus"})
	assert.True(t, eris.Is(err, ErrInvalidCategory))
}

func TestSet_Sorted(t *testing.T) {
	s := NewSet(Transport, Food, Health)
	assert.Equal(t, []Tag{Food, Health, Transport}, s.Sorted())
	assert.Equal(t, []string{"food", "health", "transport"}, s.Strings())
}

func TestTag_UnmarshalText(t *testing.T) {
	var tag Tag
	require.NoError(t, tag.UnmarshalText([]byte("Clothes")))
	assert.Equal(t, Clothes, tag)

	err := tag.UnmarshalText([]byte("toys"))
	assert.True(t, eris.Is(err, ErrInvalidCategory))
}

func TestSet_JSON(t *testing.T) {
	b, err := json.Marshal(NewSet(Work, Food))
	require.NoError(t, err)
	assert.JSONEq(t, `["food","work"]`, string(b))

	b, err = json.Marshal(Set(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))

	var s Set
	require.NoError(t, json.Unmarshal([]byte(`["Legal","health"]`), &s))
	assert.Equal(t, NewSet(Legal, Health), s)

	err = json.Unmarshal([]byte(`["legal","magic"]`), &s)
	assert.True(t, eris.Is(err, ErrInvalidCategory))
}
