package gallery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntake(t *testing.T) {
	limits := Limits{MaxBytes: 1000, Allowed: []string{"image/", "video/"}, Denied: []string{"image/svg+xml"}}
	png := pngBytes(t, 4, 4)
	candidates := []Candidate{
		memCandidate("ok.png", "image/png", png),
		sizedCandidate("big.mp4", "video/mp4", 5000),
		memCandidate("doc.pdf", "application/pdf", []byte("%PDF-1.4")),
		memCandidate("sniffed.bin", "application/octet-stream", png),
		memCandidate("nodecl", "", png),
		memCandidate("logo.svg", "image/svg+xml", []byte("<svg/>")),
		memCandidate("empty.png", "image/png", nil),
		memCandidate("params.jpg", "image/JPEG; charset=binary", []byte{0xff, 0xd8, 0xff}),
	}
	verdicts := Intake(candidates, limits)
	require.Len(t, verdicts, len(candidates))

	accepted := map[string]string{}
	for _, v := range verdicts {
		if v.Accepted {
			accepted[v.Name] = v.MimeType
		} else {
			assert.NotEmpty(t, v.Error, v.Name)
		}
	}
	assert.Equal(t, map[string]string{
		"ok.png":      "image/png",
		"sniffed.bin": "image/png",
		"nodecl":      "image/png",
		"params.jpg":  "image/jpeg",
	}, accepted)
	assert.Contains(t, verdicts[1].Error, "too large")
	assert.Contains(t, verdicts[1].Error, "1000 B")
	assert.Equal(t, "image/png", candidates[3].MimeType)
}
