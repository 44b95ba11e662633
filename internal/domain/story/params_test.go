package story

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func baseParams() Params {
	return Params{
		Genre:       GenreFantasy,
		Plot:        "A lone knight guards a crumbling bridge.",
		Perspective: PerspectiveThird,
		Characters:  "Mara, Ilya",
		Setting:     "A misty river valley",
		Format:      FormatNarrative,
	}
}

func TestCacheKeyDeterministic(t *testing.T) {
	p1 := baseParams()
	p2 := baseParams()

	assert.Equal(t, p1.CacheKey(), p2.CacheKey())
}

func TestCacheKeyChangesWithEveryField(t *testing.T) {
	bp := baseParams()
	base := bp.CacheKey()

	variants := []Params{}

	v := baseParams()
	v.Genre = GenreHorror
	variants = append(variants, v)

	v = baseParams()
	v.Plot = v.Plot + "!"
	variants = append(variants, v)

	v = baseParams()
	v.Perspective = PerspectiveFirst
	variants = append(variants, v)

	v = baseParams()
	v.Characters = "Mara"
	variants = append(variants, v)

	v = baseParams()
	v.Setting = "A desert outpost"
	variants = append(variants, v)

	v = baseParams()
	v.Format = FormatDialogue
	variants = append(variants, v)

	v = baseParams()
	v.Length = strPtr("long")
	variants = append(variants, v)

	v = baseParams()
	v.Mood = strPtr("sad")
	variants = append(variants, v)

	v = baseParams()
	v.Period = strPtr("victorian")
	variants = append(variants, v)

	v = baseParams()
	v.Atmosphere = strPtr("rainy")
	variants = append(variants, v)

	v = baseParams()
	v.ImageBase64 = strPtr("AAAA")
	variants = append(variants, v)

	seen := map[string]bool{base: true}
	for i, variant := range variants {
		key := variant.CacheKey()
		assert.False(t, seen[key], "variant %d collided with an earlier key", i)
		seen[key] = true
	}
}

func TestCacheKeyAbsentDiffersFromEmpty(t *testing.T) {
	absent := baseParams()
	explicit := baseParams()
	explicit.Mood = strPtr("")

	assert.NotEqual(t, absent.CacheKey(), explicit.CacheKey())
}

func TestCacheKeySafeAgainstSeparatorInjection(t *testing.T) {
	// 字段值中出现分隔符不得与相邻字段产生歧义
	p1 := baseParams()
	p1.Characters = "a|"
	p1.Setting = "b"

	p2 := baseParams()
	p2.Characters = "a"
	p2.Setting = "|b"

	assert.NotEqual(t, p1.CacheKey(), p2.CacheKey())
}

func TestWellFormedRequiresNonTrivialPlot(t *testing.T) {
	p := baseParams()
	require.True(t, p.WellFormed())

	p.Plot = "too short"
	assert.False(t, p.WellFormed())

	p.Plot = "   " + strings.Repeat("x", MinPlotLength) + "   "
	assert.False(t, p.WellFormed(), "whitespace must not count toward plot length")

	p.Plot = strings.Repeat("x", MinPlotLength+1)
	assert.True(t, p.WellFormed())
}

func TestWellFormedImageModeSkipsPlotCheck(t *testing.T) {
	p := baseParams()
	p.Plot = ""
	p.ImageBase64 = strPtr("data:image/png;base64,AAAA")

	assert.True(t, p.WellFormed())
}

func TestCharacterListCleansEntries(t *testing.T) {
	p := baseParams()
	p.Characters = " Mara , , Ilya ,,"

	assert.Equal(t, []string{"Mara", "Ilya"}, p.CharacterList())
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("a"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))
}
