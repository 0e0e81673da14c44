package sui

import (
	"bytes"
	"encoding/json"
	"strconv"
	"unicode/utf8"

	"github.com/mmuslimabdulj/hero-arena/internal/domain"
)

type objectOptions struct {
	ShowType    bool `json:"showType"`
	ShowOwner   bool `json:"showOwner"`
	ShowContent bool `json:"showContent"`
}

var heroObjectOptions = objectOptions{ShowType: true, ShowOwner: true, ShowContent: true}

type objectResponse struct {
	Data  *objectData  `json:"data"`
	Error *objectError `json:"error"`
}

type objectError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id"`
}

type objectData struct {
	ObjectID string         `json:"objectId"`
	Type     string         `json:"type"`
	Content  *objectContent `json:"content"`
}

type objectContent struct {
	DataType string     `json:"dataType"`
	Type     string     `json:"type"`
	Fields   heroFields `json:"fields"`
}

type heroFields struct {
	Name  json.RawMessage `json:"name"`
	HP    json.RawMessage `json:"hp"`
	XP    json.RawMessage `json:"xp"`
	Level json.RawMessage `json:"level"`
}

type ownedObjectsPage struct {
	Data        []objectResponse `json:"data"`
	NextCursor  *string          `json:"nextCursor"`
	HasNextPage bool             `json:"hasNextPage"`
}

type ownedObjectsQuery struct {
	Filter  map[string]string `json:"filter"`
	Options objectOptions     `json:"options"`
}

func (d *objectData) objectType() string {
	if d.Type == "" && d.Content != nil {
		return d.Content.Type
	}
	return d.Type
}

// record converts a Move object into a hero record. Fields that are missing
// or unreadable are left absent.
func (d *objectData) record() domain.HeroRecord {
	rec := domain.HeroRecord{ID: d.ObjectID}
	if d.Content == nil {
		return rec
	}
	f := d.Content.Fields
	rec.Name = decodeName(f.Name)
	rec.HP = decodeU64(f.HP)
	rec.XP = decodeU64(f.XP)
	rec.Level = decodeU64(f.Level)
	return rec
}

// decodeU64 accepts numbers and the decimal strings nodes use for u64.
func decodeU64(raw json.RawMessage) *int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return nil
	}
	n := int(v)
	return &n
}

// decodeName accepts a Move String or a vector<u8> rendered as numbers.
func decodeName(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	var b []uint8
	if err := json.Unmarshal(raw, &b); err == nil && utf8.Valid(b) {
		s = string(b)
		return &s
	}
	return nil
}
