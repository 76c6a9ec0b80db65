package entity

import "strings"

const gameTagNameLen = 50

// GameTag is a user-defined PGN header name that is not one of the standard tags.
type GameTag struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
	Refs
}

func GameTagKey(name string) GameTag {
	return GameTag{ID: -1, Name: name}
}

type GameTagCodec struct{}

func (GameTagCodec) Size() int { return gameTagNameLen + refsSize }

func (GameTagCodec) Marshal(t GameTag, dst []byte) {
	putString(dst[:gameTagNameLen], t.Name)
	putRefs(dst[gameTagNameLen:], t.Refs)
}

func (GameTagCodec) Unmarshal(id int32, src []byte) (GameTag, error) {
	return GameTag{
		ID:   id,
		Name: getString(src[:gameTagNameLen]),
		Refs: getRefs(src[gameTagNameLen:]),
	}, nil
}

// Tag names are case-sensitive in PGN, unlike the other entity names.
func (GameTagCodec) Compare(a, b GameTag) int { return strings.Compare(a.Name, b.Name) }

func (GameTagCodec) ID(t GameTag) int32 { return t.ID }
