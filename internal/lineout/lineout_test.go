package lineout

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(match, typ, tower, jumper, count, zone string) Record {
	return Record{
		Match:       V(match),
		Type:        V(typ),
		Tower:       V(tower),
		Jumper:      V(jumper),
		PlayerCount: V(count),
		Zone:        V(zone),
	}
}

// fiveRows is the two-match fixture: A has three lineouts, B has two.
func fiveRows(t *testing.T) Table {
	t.Helper()
	store, err := NewStore(AllColumns, []Record{
		rec("A", "lanzamiento", "1", "Juan", "5", "50-22"),
		rec("A", "maul", "2", "Pedro", "7", "50-22"),
		rec("A", "lanzamiento", "1", "Juan", "5", "5"),
		rec("B", "maul", "3", "Luis", "4", "22-5"),
		rec("B", "", "", "Luis", "", "22-5"),
	})
	require.NoError(t, err)
	return store
}

func TestNewStoreMissingColumns(t *testing.T) {
	_, err := NewStore([]Column{ColTower, ColJumper, ColPlayerCount, ColZone}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.False(t, errors.Is(err, ErrColumnNotFound))

	var mce *MissingColumnsError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, []Column{ColMatch}, mce.Columns)
}

func TestNewStoreNullsColumnsOutsideSchema(t *testing.T) {
	store, err := NewStore(RequiredColumns, []Record{rec("A", "maul", "1", "J", "5", "5")})
	require.NoError(t, err)
	assert.False(t, store.Has(ColType))
	assert.False(t, store.Rows()[0].Type.Valid)

	_, err = store.Distinct(ColType)
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestDistinct(t *testing.T) {
	store := fiveRows(t)
	matches, err := store.Distinct(ColMatch)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, matches)

	towers, err := store.Distinct(ColTower)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, towers)
}

func TestFilter(t *testing.T) {
	store := fiveRows(t)

	tests := []struct {
		name        string
		constraints []Constraint
		want        int
	}{
		{"no constraints", nil, 5},
		{"all is a no-op", []Constraint{Eq(ColMatch, All), Eq(ColZone, All)}, 5},
		{"match", []Constraint{Eq(ColMatch, "A")}, 3},
		{"match and zone", []Constraint{Eq(ColMatch, "A"), Eq(ColZone, "50-22")}, 2},
		{"case sensitive", []Constraint{Eq(ColType, "Maul")}, 0},
		{"nulls never match", []Constraint{Eq(ColTower, "")}, 0},
		{"unknown zone is empty", []Constraint{Eq(ColZone, "10")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Filter(tt.constraints...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Len())
		})
	}
}

func TestFilterUnknownColumn(t *testing.T) {
	store, err := NewStore(RequiredColumns, nil)
	require.NoError(t, err)

	_, err = store.Filter(Eq(ColType, All))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrColumnNotFound)

	var ce *ColumnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ColType, ce.Column)
}

func TestFilterIdempotentAndCommutative(t *testing.T) {
	store := fiveRows(t)
	x := Eq(ColMatch, "A")
	y := Eq(ColTower, "1")

	once, err := store.Filter(x)
	require.NoError(t, err)
	twice, err := once.Filter(x)
	require.NoError(t, err)
	assert.Equal(t, once.Rows(), twice.Rows())

	xy, err := Pipeline{x, y}.Apply(store)
	require.NoError(t, err)
	yx, err := Pipeline{y, x}.Apply(store)
	require.NoError(t, err)
	assert.Equal(t, xy.Rows(), yx.Rows())

	chained, err := store.Filter(y)
	require.NoError(t, err)
	chained, err = chained.Filter(x)
	require.NoError(t, err)
	assert.Equal(t, xy.Rows(), chained.Rows())
}

func TestFilterDoesNotMutateStore(t *testing.T) {
	store := fiveRows(t)
	before := store.Rows()
	_, err := store.Filter(Eq(ColMatch, "B"))
	require.NoError(t, err)
	assert.Equal(t, before, store.Rows())
}

func TestMatchScenario(t *testing.T) {
	store := fiveRows(t)
	a, err := store.Filter(Eq(ColMatch, "A"))
	require.NoError(t, err)
	require.Equal(t, 3, a.Len())

	towers, err := ValueCounts(a, ColTower)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"1": 2, "2": 1}, towers.Map())
	assert.Equal(t, 3, towers.Total)

	mode, err := MostFrequent(a, ColTower)
	require.NoError(t, err)
	assert.Equal(t, Mode{Value: "1", Valid: true}, mode)

	// Towers "1" and "2" tie in 50-22; the lexically smallest wins.
	zone, err := a.Filter(Eq(ColZone, "50-22"))
	require.NoError(t, err)
	mode, err = MostFrequent(zone, ColTower)
	require.NoError(t, err)
	assert.Equal(t, "1", mode.String())
}

func TestEmptyScenario(t *testing.T) {
	store := fiveRows(t)
	empty, err := store.Filter(Eq(ColMatch, "A"), Eq(ColZone, "22-5"))
	require.NoError(t, err)
	require.Equal(t, 0, empty.Len())

	mode, err := MostFrequent(empty, ColTower)
	require.NoError(t, err)
	assert.False(t, mode.Valid)
	assert.Equal(t, NoData, mode.String())

	mean, err := Average(empty, ColPlayerCount)
	require.NoError(t, err)
	assert.False(t, mean.Defined)
	assert.Equal(t, NoData, mean.Format(1))

	n, err := NonNull(empty, ColPlayerCount)
	require.NoError(t, err)
	assert.Zero(t, n)

	pairs, err := CoOccurrence(empty, ColTower, ColJumper)
	require.NoError(t, err)
	assert.Empty(t, pairs.Entries)
}

func TestValueCountsOrderAndSum(t *testing.T) {
	store := fiveRows(t)
	for _, c := range []Column{ColMatch, ColType, ColTower, ColJumper, ColPlayerCount, ColZone} {
		counts, err := ValueCounts(store, c)
		require.NoError(t, err)
		nn, err := NonNull(store, c)
		require.NoError(t, err)

		sum := 0
		for i, e := range counts.Entries {
			sum += e.N
			if i > 0 {
				prev := counts.Entries[i-1]
				assert.True(t, prev.N > e.N || (prev.N == e.N && prev.Value < e.Value), "order at %s[%d]", c, i)
			}
		}
		assert.Equal(t, nn, sum, c)
		assert.Equal(t, nn, counts.Total, c)
	}

	jumpers, err := ValueCounts(store, ColJumper)
	require.NoError(t, err)
	assert.Equal(t, []Count{{"Juan", 2}, {"Luis", 2}, {"Pedro", 1}}, jumpers.Entries)
}

func TestModeIsAMaxKey(t *testing.T) {
	store := fiveRows(t)
	counts, err := ValueCounts(store, ColZone)
	require.NoError(t, err)
	mode, err := MostFrequent(store, ColZone)
	require.NoError(t, err)
	assert.Equal(t, counts.Entries[0].N, counts.Map()[mode.Value])
	assert.Equal(t, "22-5", mode.Value)
}

func TestAverage(t *testing.T) {
	store := fiveRows(t)
	mean, err := Average(store, ColPlayerCount)
	require.NoError(t, err)
	require.True(t, mean.Defined)
	assert.Equal(t, 4, mean.N)
	assert.InDelta(t, (5.0+7+5+4)/4, mean.Value, 1e-9)
	assert.Equal(t, "5.25", mean.Format(2))
}

func TestAverageNotNumeric(t *testing.T) {
	for _, count := range []string{"five", "NaN", "Inf", "-Infinity", "1e999"} {
		t.Run(count, func(t *testing.T) {
			store, err := NewStore(AllColumns, []Record{
				rec("A", "", "1", "J", "5", "5"),
				rec("A", "", "1", "J", count, "5"),
			})
			require.NoError(t, err)
			_, err = Average(store, ColPlayerCount)
			assert.ErrorIs(t, err, ErrNotNumeric)
		})
	}

	store, err := NewStore(AllColumns, []Record{rec("A", "", "1", "J", "five", "5")})
	require.NoError(t, err)
	_, err = Average(store, ColTower)
	assert.NoError(t, err)
}

func TestCoOccurrence(t *testing.T) {
	store := fiveRows(t)
	pairs, err := CoOccurrence(store, ColTower, ColJumper)
	require.NoError(t, err)
	assert.Equal(t, []Pair{
		{A: "1", B: "Juan", N: 2},
		{A: "2", B: "Pedro", N: 1},
		{A: "3", B: "Luis", N: 1},
	}, pairs.Entries)

	// One row has a null tower.
	assert.Equal(t, 4, pairs.Total)

	_, err = CoOccurrence(store, ColTower, Column("weather"))
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestDerivationsAreDeterministic(t *testing.T) {
	store := fiveRows(t)
	first, err := CoOccurrence(store, ColZone, ColTower)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := CoOccurrence(store, ColZone, ColTower)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestSentinelsEncodeAsNull(t *testing.T) {
	b, err := json.Marshal(struct {
		Mode Mode `json:"mode"`
		Mean Mean `json:"mean"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"mode":null,"mean":null}`, string(b))

	b, err = json.Marshal([]any{Mode{Value: "1", Valid: true}, Mean{Value: 5.5, N: 2, Defined: true}})
	require.NoError(t, err)
	assert.JSONEq(t, `["1",5.5]`, string(b))
}
