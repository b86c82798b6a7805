package modality

// Modality is the content type being searched.
type Modality string

// Supported modalities.
const (
	Text  Modality = "text"
	Image Modality = "image"
	Table Modality = "table"
	Audio Modality = "audio"
	Video Modality = "video"
)

// IsValid checks if the modality is one of the supported values.
func (m Modality) IsValid() bool {
	return m == Text || m == Image || m == Table || m == Audio || m == Video
}
