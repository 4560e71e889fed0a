package enrichment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"

	"github.com/bigkaa/profile-intake/internal/domain/model"
)

// fenceRe — markdown code fence вокруг JSON, с необязательным тегом языка.
var fenceRe = regexp.MustCompile("(?s)^```(\\w*)?\\s*\\n?(.*?)\\n?\\s*```$")

// stripFence снимает обрамление ```json ... ``` если оно есть.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil && m[2] != "" {
		return strings.TrimSpace(m[2])
	}
	return s
}

// parseResponse разбирает ответ модели в Enrichment.
// Массив заменяется первым элементом; всё, что не объект, — ошибка.
// Поля неверного типа становятся nil, остальные поля ответа сохраняются.
func parseResponse(raw string) (model.Enrichment, error) {
	dec := json.NewDecoder(strings.NewReader(stripFence(raw)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return model.Enrichment{}, fmt.Errorf("%w: %w", ErrMalformed, err) //nolint:errorlint // намеренный двойной wrap
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return model.Enrichment{}, fmt.Errorf("%w: лишние данные после JSON", ErrMalformed)
	}

	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return model.Enrichment{}, fmt.Errorf("%w: пустой массив", ErrMalformed)
		}
		v = arr[0]
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return model.Enrichment{}, fmt.Errorf("%w: ответ не является JSON-объектом", ErrMalformed)
	}

	return model.Enrichment{
		Name:         asString(obj["name"]),
		Age:          asInt(obj["age"]),
		Height:       asInt(obj["height"]),
		Weight:       asInt(obj["weight"]),
		Measurements: asString(obj["measurements"]),
		About:        asString(obj["about"]),
		Notes:        asString(obj["notes"]),
	}, nil
}

func asString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// asInt принимает только JSON-числа. Дробная часть отбрасывается,
// значения вне диапазона INTEGER становятся nil.
func asInt(v any) *int {
	num, ok := v.(json.Number)
	if !ok {
		return nil
	}

	f, err := num.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	f = math.Trunc(f)
	if f < math.MinInt32 || f > math.MaxInt32 {
		return nil
	}

	n := int(f)
	return &n
}
