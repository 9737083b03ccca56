// Package inspector extracts displayable fields from simulation state and
// picks particles under the cursor. Drawing is left to the viewer.
package inspector

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/tendril/vecmath"
)

// Widget types for rendering fields.
type Widget int

const (
	WidgetAuto Widget = iota
	WidgetLabel
	WidgetBar
	WidgetVec
	WidgetBool
	WidgetSkip
)

// Field represents a struct field with rendering hints.
type Field struct {
	Name    string
	Value   interface{}
	Widget  Widget
	Options map[string]string
}

// ParseTag parses an inspect struct tag.
// Format: `inspect:"widget[,option:value...]"`
// Examples:
//
//	`inspect:"bar"`
//	`inspect:"bar,max:200"`
//	`inspect:"vec,fmt:%.3f"`
//	`inspect:"label,fmt:%.1f"`
//	`inspect:"skip"`
func ParseTag(tag string) (Widget, map[string]string) {
	options := make(map[string]string)

	if tag == "" {
		return WidgetAuto, options
	}

	parts := strings.Split(tag, ",")

	var widget Widget
	switch strings.TrimSpace(parts[0]) {
	case "label":
		widget = WidgetLabel
	case "bar":
		widget = WidgetBar
	case "vec":
		widget = WidgetVec
	case "bool":
		widget = WidgetBool
	case "skip":
		widget = WidgetSkip
	default:
		widget = WidgetAuto
	}

	for _, part := range parts[1:] {
		kv := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(kv) == 2 {
			options[kv[0]] = kv[1]
		}
	}

	return widget, options
}

// ExtractFields uses reflection to extract the exported fields of a struct.
func ExtractFields(v interface{}) []Field {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	t := rv.Type()
	var fields []Field

	for i := 0; i < rv.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fv := rv.Field(i)

		widget, options := ParseTag(sf.Tag.Get("inspect"))
		if widget == WidgetSkip {
			continue
		}
		if widget == WidgetAuto {
			widget = autoDetectWidget(fv)
		}

		fields = append(fields, Field{
			Name:    sf.Name,
			Value:   fv.Interface(),
			Widget:  widget,
			Options: options,
		})
	}

	return fields
}

var (
	vecType   = reflect.TypeOf(vecmath.Vec3{})
	glVecType = reflect.TypeOf(mgl32.Vec3{})
)

// autoDetectWidget chooses a widget based on the field type.
func autoDetectWidget(v reflect.Value) Widget {
	if t := v.Type(); t == vecType || t == glVecType {
		return WidgetVec
	}
	switch v.Kind() {
	case reflect.Bool:
		return WidgetBool
	default:
		return WidgetLabel
	}
}

// FormatValue formats a field value as a string. Vectors are formatted per
// component and quaternions as axis and angle in degrees.
func FormatValue(value interface{}, fmtStr string) string {
	elem := fmtStr
	if elem == "" {
		elem = "%.2f"
	}
	switch v := value.(type) {
	case vecmath.Vec3:
		return formatVec(elem, v.X, v.Y, v.Z)
	case mgl32.Vec3:
		return formatVec(elem, float64(v[0]), float64(v[1]), float64(v[2]))
	case vecmath.Quat:
		axis, angle := v.AxisAngle()
		return fmt.Sprintf("%s %.1f°", formatVec(elem, axis.X, axis.Y, axis.Z), angle*180/math.Pi)
	}
	if fmtStr == "" {
		switch v := value.(type) {
		case float32:
			return fmt.Sprintf("%.2f", v)
		case float64:
			return fmt.Sprintf("%.2f", v)
		default:
			return fmt.Sprintf("%v", value)
		}
	}
	return fmt.Sprintf(fmtStr, value)
}

func formatVec(elem string, x, y, z float64) string {
	return "(" + fmt.Sprintf(elem, x) + ", " + fmt.Sprintf(elem, y) + ", " + fmt.Sprintf(elem, z) + ")"
}

// GetMax returns the max option as a float, defaulting to 1.0.
func GetMax(options map[string]string) float32 {
	if maxStr, ok := options["max"]; ok {
		if max, err := strconv.ParseFloat(maxStr, 32); err == nil {
			return float32(max)
		}
	}
	return 1.0
}

// GetFloatValue extracts a float32 from various types.
func GetFloatValue(value interface{}) (float32, bool) {
	switch v := value.(type) {
	case float32:
		return v, true
	case float64:
		return float32(v), true
	case int:
		return float32(v), true
	case int32:
		return float32(v), true
	case int64:
		return float32(v), true
	case uint32:
		return float32(v), true
	default:
		return 0, false
	}
}

// GetVec extracts three float32 components from a vector value.
func GetVec(value interface{}) ([3]float32, bool) {
	switch v := value.(type) {
	case vecmath.Vec3:
		return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}, true
	case mgl32.Vec3:
		return [3]float32(v), true
	default:
		return [3]float32{}, false
	}
}
