package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecommendations(t *testing.T) {
	t.Run("FencedJSONBlock", func(t *testing.T) {
		response := "```json\n[{\"name\":\"A\",\"type\":\"museum\",\"description\":\"d\"}]\n```"

		recs := parseRecommendations(response)

		require.Len(t, recs, 1)
		assert.Equal(t, "A", recs[0].Name)
		assert.Equal(t, "museum", recs[0].Type)
		assert.Equal(t, "d", recs[0].Description)
	})

	t.Run("NoJSON", func(t *testing.T) {
		recs := parseRecommendations("no json here")
		assert.Empty(t, recs)
	})

	t.Run("EmptyResponse", func(t *testing.T) {
		recs := parseRecommendations("")
		assert.Empty(t, recs)
	})

	t.Run("DropsEntryMissingName", func(t *testing.T) {
		response := `[
			{"name":"Museo del Prado","type":"museum","description":"Pinacoteca principal"},
			{"type":"park","description":"Sin nombre"}
		]`

		recs := parseRecommendations(response)

		require.Len(t, recs, 1)
		assert.Equal(t, "Museo del Prado", recs[0].Name)
	})

	t.Run("BareArrayWithSurroundingText", func(t *testing.T) {
		response := `Claro, aquí van mis recomendaciones:
[
  {"name":"Retiro","type":"park","distance":350,"description":"Parque central","rating":4.7}
]
¡Disfruta tu visita!`

		recs := parseRecommendations(response)

		require.Len(t, recs, 1)
		assert.Equal(t, "Retiro", recs[0].Name)
		require.NotNil(t, recs[0].Distance)
		assert.Equal(t, 350.0, *recs[0].Distance)
		require.NotNil(t, recs[0].Rating)
		assert.Equal(t, 4.7, *recs[0].Rating)
	})

	t.Run("FencedBlockWinsOverLaterBrackets", func(t *testing.T) {
		response := "```json\n[{\"name\":\"A\",\"type\":\"museum\",\"description\":\"d\"}]\n```\nextra [not json]"

		recs := parseRecommendations(response)

		require.Len(t, recs, 1)
		assert.Equal(t, "A", recs[0].Name)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		recs := parseRecommendations("[{\"name\": \"A\", \"type\":")
		assert.Empty(t, recs)
	})

	t.Run("ImplausibleOptionalsOmitted", func(t *testing.T) {
		response := `[{"name":"A","type":"museum","description":"d","distance":-5,"rating":9.5}]`

		recs := parseRecommendations(response)

		require.Len(t, recs, 1)
		assert.Nil(t, recs[0].Distance)
		assert.Nil(t, recs[0].Rating)
	})

	t.Run("WronglyTypedOptionalsDoNotFailEntry", func(t *testing.T) {
		response := `[{"name":"A","type":"museum","description":"d","distance":"cerca","coordinates":"none"}]`

		recs := parseRecommendations(response)

		require.Len(t, recs, 1)
		assert.Nil(t, recs[0].Distance)
		assert.Nil(t, recs[0].Coordinates)
	})

	t.Run("FullEntry", func(t *testing.T) {
		response := `[{
			"name":"Mirador",
			"type":"viewpoint",
			"description":"Vistas de la ciudad",
			"distance":1200,
			"rating":4.2,
			"coordinates":{"lat":40.41,"lng":-3.7},
			"imageUrl":"https://example.com/mirador.jpg",
			"openingHours":"9:00-20:00"
		}]`

		recs := parseRecommendations(response)

		require.Len(t, recs, 1)
		rec := recs[0]
		require.NotNil(t, rec.Coordinates)
		assert.Equal(t, 40.41, rec.Coordinates.Lat)
		assert.Equal(t, -3.7, rec.Coordinates.Lng)
		require.NotNil(t, rec.ImageURL)
		assert.Equal(t, "https://example.com/mirador.jpg", *rec.ImageURL)
		require.NotNil(t, rec.OpeningHours)
		assert.Equal(t, "9:00-20:00", *rec.OpeningHours)
	})

	t.Run("ThreeEntries", func(t *testing.T) {
		response := "```json\n" + `[
			{"name":"A","type":"museum","description":"a"},
			{"name":"B","type":"monument","description":"b"},
			{"name":"C","type":"restaurant","description":"c"}
		]` + "\n```"

		recs := parseRecommendations(response)
		assert.Len(t, recs, 3)
	})
}

func TestExtractJSONArray(t *testing.T) {
	t.Run("Fenced", func(t *testing.T) {
		got := extractJSONArray("```json\n[1,2]\n```")
		assert.Equal(t, "[1,2]", got)
	})

	t.Run("Bare", func(t *testing.T) {
		got := extractJSONArray("prefix [1,2] suffix")
		assert.Equal(t, "[1,2]", got)
	})

	t.Run("None", func(t *testing.T) {
		assert.Equal(t, "", extractJSONArray("nothing"))
	})

	t.Run("ClosingBeforeOpening", func(t *testing.T) {
		assert.Equal(t, "", extractJSONArray("] then ["))
	})
}
