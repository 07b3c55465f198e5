package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/facundoguellutn/mapsy/internal/types"
)

func TestBuildTouristPrompt(t *testing.T) {
	guideCtx := GuideContext{
		Country:      "España",
		City:         "Madrid",
		LandmarkName: "Palacio Real",
		LandmarkInfo: &types.LandmarkDetection{
			Landmarks: []types.Landmark{{
				Description: "Palacio Real",
				Score:       0.92,
				Locations: []types.LandmarkLocation{{
					LatLng: types.LatLng{Latitude: 40.417, Longitude: -3.714},
				}},
			}},
			WebDetection: &types.WebDetection{
				BestGuessLabels: []types.WebLabel{{Label: "palacio real"}, {Label: "madrid"}},
			},
		},
	}

	prompt := buildTouristPrompt(guideCtx, "")

	assert.Contains(t, prompt, "España, específicamente en Madrid")
	assert.Contains(t, prompt, "El turista está visitando: Palacio Real")
	assert.Contains(t, prompt, "Ubicación: 40.417, -3.714")
	assert.Contains(t, prompt, "Confianza de detección: 92%")
	assert.Contains(t, prompt, "Información adicional detectada: palacio real, madrid")
}

func TestBuildTouristPromptWithoutLocation(t *testing.T) {
	guideCtx := GuideContext{
		Country:      "España",
		City:         "Madrid",
		LandmarkName: "Palacio Real",
		LandmarkInfo: &types.LandmarkDetection{
			Landmarks: []types.Landmark{{Description: "Palacio Real", Score: 0.5}},
		},
	}

	prompt := buildTouristPrompt(guideCtx, "")

	assert.Contains(t, prompt, "Ubicación: No disponible")
	assert.Contains(t, prompt, "Confianza de detección: 50%")
}

func TestBuildQuestionPrompt(t *testing.T) {
	guideCtx := GuideContext{Country: "España", City: "Madrid"}

	prompt := buildQuestionPrompt(guideCtx, "¿Dónde como cocido?")

	assert.Contains(t, prompt, "guía turístico experto en España, específicamente en Madrid")
	assert.Contains(t, prompt, "¿Dónde como cocido?")
}

func TestBuildRecommendationPrompt(t *testing.T) {
	guideCtx := GuideContext{Country: "España", City: "Madrid"}

	prompt := buildRecommendationPrompt(guideCtx, "Palacio Real")

	assert.Contains(t, prompt, "El turista acaba de visitar: Palacio Real")
	assert.Contains(t, prompt, "exactamente 3 lugares")
	assert.Contains(t, prompt, "```json")
	// The parser must be able to read back what this prompt requests.
	assert.True(t, strings.Contains(prompt, `"name"`) && strings.Contains(prompt, `"type"`))
}

func TestBuildRecommendationPromptWithoutLandmark(t *testing.T) {
	prompt := buildRecommendationPrompt(GuideContext{Country: "España"}, "")
	assert.NotContains(t, prompt, "acaba de visitar")
}
