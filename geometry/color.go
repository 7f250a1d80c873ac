package geometry

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/zlnvch/whiteboard/models"
)

var connectionColors = []string{"#DC2626", "#D97706", "#059669", "#7C3AED", "#DB2777"}

// ConnectionIdToColor gives every participant a stable highlight color.
func ConnectionIdToColor(connectionId int) string {
	if connectionId < 0 {
		connectionId = -connectionId
	}
	return connectionColors[connectionId%len(connectionColors)]
}

func ColorToCSS(c models.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var hexColorRegex = regexp.MustCompile(`^#?([0-9A-Fa-f]{2})([0-9A-Fa-f]{2})([0-9A-Fa-f]{2})$`)

// HexToRGB parses "#rrggbb" (the leading '#' is optional).
func HexToRGB(hex string) (models.Color, bool) {
	m := hexColorRegex.FindStringSubmatch(hex)
	if m == nil {
		return models.Color{}, false
	}

	var rgb [3]uint8
	for i := range rgb {
		v, err := strconv.ParseUint(m[i+1], 16, 8)
		if err != nil {
			return models.Color{}, false
		}
		rgb[i] = uint8(v)
	}

	return models.RGB(rgb[0], rgb[1], rgb[2]), true
}
