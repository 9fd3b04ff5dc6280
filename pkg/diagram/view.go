package diagram

import (
	"fmt"
	"strconv"
	"strings"
)

// GenerateView creates the view file content for the diagram's pan/zoom state.
func GenerateView(v View) string {
	var sb strings.Builder

	sb.WriteString("[view]\n")
	sb.WriteString("version = 1\n")
	sb.WriteString(fmt.Sprintf("scale = %s\n", formatFloat(v.Scale)))
	sb.WriteString(fmt.Sprintf("offset_x = %s\n", formatFloat(v.OffsetX)))
	sb.WriteString(fmt.Sprintf("offset_y = %s\n", formatFloat(v.OffsetY)))

	return sb.String()
}

// ParseView parses view file content. Unknown keys are ignored; a missing
// or zero scale becomes 1.
func ParseView(text string) (View, error) {
	v := View{Scale: 1}
	var section string

	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = line[1 : len(line)-1]
			continue
		}
		if section != "view" {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		var dst *float64
		switch key {
		case "scale":
			dst = &v.Scale
		case "offset_x":
			dst = &v.OffsetX
		case "offset_y":
			dst = &v.OffsetY
		default:
			continue
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return View{}, fmt.Errorf("line %d: %s: %w", n+1, key, err)
		}
		*dst = f
	}

	if v.Scale == 0 {
		v.Scale = 1
	}
	if v.Scale < 0 {
		return View{}, fmt.Errorf("negative scale %g", v.Scale)
	}
	return v, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
