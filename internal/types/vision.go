package types

// LandmarkDetection is the structured result of one Vision Classifier call:
// detected landmarks, web entities and OCR text. The message pipeline reads
// the first landmark's description/score and the first best-guess label to
// build prompts; the rest is stored verbatim on the message.
type LandmarkDetection struct {
	Landmarks       []Landmark       `json:"landmarks"`
	WebDetection    *WebDetection    `json:"webDetection,omitempty"`
	TextAnnotations []TextAnnotation `json:"textAnnotations,omitempty"`
}

type Landmark struct {
	Description string             `json:"description"`
	Locations   []LandmarkLocation `json:"locations"`
	Score       float64            `json:"score"`
}

type LandmarkLocation struct {
	LatLng LatLng `json:"latLng"`
}

type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type WebDetection struct {
	WebEntities             []WebEntity    `json:"webEntities"`
	BestGuessLabels         []WebLabel     `json:"bestGuessLabels"`
	PagesWithMatchingImages []MatchingPage `json:"pagesWithMatchingImages,omitempty"`
}

type WebEntity struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type WebLabel struct {
	Label string `json:"label"`
}

type MatchingPage struct {
	URL       string `json:"url"`
	PageTitle string `json:"pageTitle"`
}

type TextAnnotation struct {
	Description string `json:"description"`
	Locale      string `json:"locale,omitempty"`
}
