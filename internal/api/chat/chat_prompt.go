package chat

import (
	"fmt"
	"math"
	"strings"

	"github.com/facundoguellutn/mapsy/internal/types"
)

// GuideContext carries the session's locale plus whatever the classifier
// found, and is the sole input of the prompt builders.
type GuideContext struct {
	Country      string
	City         string
	LandmarkName string
	LandmarkInfo *types.LandmarkDetection
}

func writeGuideIntro(b *strings.Builder, ctx GuideContext, role string) {
	fmt.Fprintf(b, "Eres un %s en %s", role, ctx.Country)
	if ctx.City != "" {
		fmt.Fprintf(b, ", específicamente en %s", ctx.City)
	}
}

// buildTouristPrompt produces the landmark narrative prompt. The guide is
// asked for history, anecdotes and practical tips in a conversational tone.
func buildTouristPrompt(ctx GuideContext, userQuery string) string {
	var b strings.Builder

	writeGuideIntro(&b, ctx, "guía turístico experto especializado")
	b.WriteString(". Tu trabajo es proporcionar información cultural, histórica y práctica de manera amigable, detallada y entretenida.\n\n")

	if ctx.LandmarkName != "" && ctx.LandmarkInfo != nil {
		fmt.Fprintf(&b, "El turista está visitando: %s\n", ctx.LandmarkName)

		if len(ctx.LandmarkInfo.Landmarks) > 0 {
			landmark := ctx.LandmarkInfo.Landmarks[0]
			location := "No disponible"
			if len(landmark.Locations) > 0 {
				latLng := landmark.Locations[0].LatLng
				location = fmt.Sprintf("%v, %v", latLng.Latitude, latLng.Longitude)
			}
			fmt.Fprintf(&b, "Ubicación: %s\n", location)
			fmt.Fprintf(&b, "Confianza de detección: %d%%\n", int(math.Round(landmark.Score*100)))
		}

		if ctx.LandmarkInfo.WebDetection != nil && len(ctx.LandmarkInfo.WebDetection.BestGuessLabels) > 0 {
			labels := make([]string, 0, len(ctx.LandmarkInfo.WebDetection.BestGuessLabels))
			for _, l := range ctx.LandmarkInfo.WebDetection.BestGuessLabels {
				labels = append(labels, l.Label)
			}
			fmt.Fprintf(&b, "Información adicional detectada: %s\n", strings.Join(labels, ", "))
		}

		b.WriteString("\n")
	}

	if userQuery != "" {
		fmt.Fprintf(&b, "Pregunta específica del turista: %q\n\n", userQuery)
	}

	b.WriteString("Proporciona información interesante incluyendo:\n")
	b.WriteString("- Historia y contexto cultural\n")
	b.WriteString("- Datos curiosos y anécdotas\n")
	b.WriteString("- Información práctica para la visita\n")
	b.WriteString("- Tips de fotografía si es relevante\n")
	b.WriteString("- Recomendaciones sobre el mejor momento para visitar\n\n")
	b.WriteString("Responde de manera conversacional, como si fueras un guía local experto y amigable. Usa emojis ocasionalmente para hacer la respuesta más atractiva.")

	return b.String()
}

// buildRecommendationPrompt asks for exactly three nearby places as a fenced
// JSON array, matching the shape the recommendation parser expects.
func buildRecommendationPrompt(ctx GuideContext, currentLandmark string) string {
	var b strings.Builder

	writeGuideIntro(&b, ctx, "guía turístico local experto")
	b.WriteString(".\n\n")

	if currentLandmark != "" {
		fmt.Fprintf(&b, "El turista acaba de visitar: %s\n\n", currentLandmark)
	}

	b.WriteString("Recomienda exactamente 3 lugares cercanos e interesantes para visitar a continuación. ")
	b.WriteString("Pueden ser museos, monumentos, atracciones, restaurantes típicos, o sitios culturales.\n\n")
	b.WriteString("Para cada recomendación, proporciona la información en el siguiente formato JSON:\n")
	b.WriteString("```json\n")
	b.WriteString("[\n")
	b.WriteString("  {\n")
	b.WriteString("    \"name\": \"Nombre del lugar\",\n")
	b.WriteString("    \"type\": \"museum|monument|restaurant|attraction|park|viewpoint\",\n")
	b.WriteString("    \"distance\": 500,\n")
	b.WriteString("    \"description\": \"Descripción atractiva y detallada del lugar\",\n")
	b.WriteString("    \"rating\": 4.5\n")
	b.WriteString("  }\n")
	b.WriteString("]\n")
	b.WriteString("```\n\n")
	b.WriteString("Asegúrate de que las recomendaciones sean relevantes y estén realmente en la zona. ")
	b.WriteString("La distancia debe ser en metros y realista. Solo responde con el JSON, sin texto adicional.")

	return b.String()
}

// buildQuestionPrompt wraps a free-form question from the tourist.
func buildQuestionPrompt(ctx GuideContext, question string) string {
	var b strings.Builder

	writeGuideIntro(&b, ctx, "guía turístico experto")
	b.WriteString(". Responde la siguiente pregunta del turista de manera informativa y útil:\n\n")
	fmt.Fprintf(&b, "Pregunta: %q\n\n", question)
	b.WriteString("Proporciona una respuesta precisa, práctica y conversacional. ")
	b.WriteString("Si es relevante, incluye tips locales, horarios, precios aproximados, o recomendaciones adicionales.")

	return b.String()
}

func welcomeMessageContent(city, country string) string {
	return fmt.Sprintf(`¡Bienvenido a tu guía turístico de %s, %s! 🗺️

Puedes:
📸 Subir fotos de lugares para obtener información detallada
💬 Hacer preguntas sobre la ciudad y sus atracciones
🎯 Pedir recomendaciones de lugares cercanos

¡Comencemos tu aventura!`, city, country)
}

func unrecognizedImageContent(city, country string) string {
	return fmt.Sprintf("No pude identificar un lugar específico en tu imagen, pero puedo ayudarte con información sobre %s, %s. ¿Hay algo particular que te gustaría saber?", city, country)
}

const (
	textApologyContent  = "Lo siento, no pude procesar tu pregunta en este momento. Por favor intenta de nuevo."
	imageApologyContent = "No pude procesar tu imagen en este momento. Por favor intenta de nuevo."
	imagePlaceholder    = "Imagen compartida"
)
