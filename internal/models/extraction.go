package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// UnknownValue is the placeholder the OCR service emits for fields it could not read.
const UnknownValue = "Unknown"

// LooseString decodes a JSON string, number or null into text.
type LooseString string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = LooseString(v)
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.(type) {
	case float64, bool:
		*s = LooseString(string(data))
		return nil
	}
	return fmt.Errorf("unsupported value %s", data)
}

// Value returns the trimmed text and whether it is present. Empty text and the
// literal "Unknown" are absent.
func (s LooseString) Value() (string, bool) {
	v := strings.TrimSpace(string(s))
	if v == "" || v == UnknownValue {
		return "", false
	}
	return v, true
}

// ReceiptExtraction is the structured result of reading a receipt.
type ReceiptExtraction struct {
	Amount      LooseString `json:"amount" yaml:"amount"`
	Category    LooseString `json:"category" yaml:"category"`
	Subcategory LooseString `json:"subcategory" yaml:"subcategory"`
	Vendor      LooseString `json:"vendor" yaml:"vendor"`
	Account     LooseString `json:"account" yaml:"account"`
	Desc1       LooseString `json:"desc1" yaml:"desc1"`
	Desc2       LooseString `json:"desc2" yaml:"desc2"`
	Desc3       LooseString `json:"desc3" yaml:"desc3"`
	InvoiceDate LooseString `json:"invoice_date" yaml:"invoice_date"`
	Type        LooseString `json:"type" yaml:"type"`
}
