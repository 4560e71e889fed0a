package enrichment

import (
	"errors"
	"testing"
)

func TestStripFence(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"без обрамления", `{"a":1}`, `{"a":1}`},
		{"с тегом json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"без тега", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"в одну строку", "```{\"a\":1}```", `{"a":1}`},
		{"пробелы вокруг", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
		{"многострочный", "```json\n{\n  \"a\": 1\n}\n```", "{\n  \"a\": 1\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFence(tt.in); got != tt.want {
				t.Errorf("stripFence() = %q, ожидается %q", got, tt.want)
			}
		})
	}
}

func TestParseResponse_ArrayTakesFirst(t *testing.T) {
	got, err := parseResponse(`[{"name":"Первая"},{"name":"Вторая"}]`)
	if err != nil {
		t.Fatalf("parseResponse() ошибка: %v", err)
	}
	if got.Name == nil || *got.Name != "Первая" {
		t.Errorf("Name = %v, ожидается Первая", got.Name)
	}
}

func TestParseResponse_Fenced(t *testing.T) {
	got, err := parseResponse("```json\n{\"name\":\"Лена\",\"age\":19}\n```")
	if err != nil {
		t.Fatalf("parseResponse() ошибка: %v", err)
	}
	if got.Name == nil || *got.Name != "Лена" || got.Age == nil || *got.Age != 19 {
		t.Errorf("результат: %+v", got)
	}
}

// TestParseResponse_Coercion — поля неверного типа становятся nil, остальные сохраняются.
func TestParseResponse_Coercion(t *testing.T) {
	got, err := parseResponse(`{
		"name": 42,
		"age": "21",
		"height": 177.9,
		"weight": -58.5,
		"measurements": ["90","60","90"],
		"about": {"text": "x"},
		"notes": "заметка",
		"extra": true
	}`)
	if err != nil {
		t.Fatalf("parseResponse() ошибка: %v", err)
	}
	if got.Name != nil {
		t.Errorf("Name = %q, ожидается nil (число вместо строки)", *got.Name)
	}
	if got.Age != nil {
		t.Errorf("Age = %d, ожидается nil (строка вместо числа)", *got.Age)
	}
	if got.Height == nil || *got.Height != 177 {
		t.Errorf("Height = %v, ожидается 177 (дробная часть отброшена)", got.Height)
	}
	if got.Weight == nil || *got.Weight != -58 {
		t.Errorf("Weight = %v, ожидается -58", got.Weight)
	}
	if got.Measurements != nil {
		t.Error("Measurements должен быть nil (массив вместо строки)")
	}
	if got.About != nil {
		t.Error("About должен быть nil (объект вместо строки)")
	}
	if got.Notes == nil || *got.Notes != "заметка" {
		t.Errorf("Notes = %v, ожидается заметка", got.Notes)
	}
}

func TestParseResponse_OutOfRangeNumber(t *testing.T) {
	got, err := parseResponse(`{"age": 1e12, "height": 170}`)
	if err != nil {
		t.Fatalf("parseResponse() ошибка: %v", err)
	}
	if got.Age != nil {
		t.Errorf("Age = %d, ожидается nil (вне диапазона INTEGER)", *got.Age)
	}
	if got.Height == nil || *got.Height != 170 {
		t.Errorf("Height = %v, ожидается 170", got.Height)
	}
}

func TestParseResponse_Errors(t *testing.T) {
	for _, in := range []string{"", "null", "[]", `"x"`, "[1]", "{", `{"a":1}{"b":2}`} {
		if _, err := parseResponse(in); !errors.Is(err, ErrMalformed) {
			t.Errorf("parseResponse(%q) = %v, ожидается ErrMalformed", in, err)
		}
	}
}
