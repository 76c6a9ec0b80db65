package entity

const annotatorNameLen = 45

type Annotator struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
	Refs
}

func AnnotatorKey(name string) Annotator {
	return Annotator{ID: -1, Name: name}
}

type AnnotatorCodec struct{}

func (AnnotatorCodec) Size() int { return annotatorNameLen + refsSize }

func (AnnotatorCodec) Marshal(a Annotator, dst []byte) {
	putString(dst[:annotatorNameLen], a.Name)
	putRefs(dst[annotatorNameLen:], a.Refs)
}

func (AnnotatorCodec) Unmarshal(id int32, src []byte) (Annotator, error) {
	return Annotator{
		ID:   id,
		Name: getString(src[:annotatorNameLen]),
		Refs: getRefs(src[annotatorNameLen:]),
	}, nil
}

func (AnnotatorCodec) Compare(a, b Annotator) int { return compareText(a.Name, b.Name) }

func (AnnotatorCodec) ID(a Annotator) int32 { return a.ID }
