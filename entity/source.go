package entity

const (
	sourceTitleLen     = 25
	sourcePublisherLen = 16
	sourceSize         = sourceTitleLen + sourcePublisherLen + 4 + 4 + 2 + refsSize
)

// Source is the publication a game was taken from.
type Source struct {
	ID              int32  `json:"id"`
	Title           string `json:"title"`
	Publisher       string `json:"publisher"`
	PublicationDate Date   `json:"publicationDate"`
	Date            Date   `json:"date"`
	Version         uint8  `json:"version"`
	Quality         uint8  `json:"quality"`
	Refs
}

func SourceKey(title string, date Date) Source {
	return Source{ID: -1, Title: title, Date: date}
}

type SourceCodec struct{}

func (SourceCodec) Size() int { return sourceSize }

func (SourceCodec) Marshal(s Source, dst []byte) {
	putString(dst[0:25], s.Title)
	putString(dst[25:41], s.Publisher)
	putInt32(dst[41:45], int32(s.PublicationDate))
	putInt32(dst[45:49], int32(s.Date))
	dst[49] = s.Version
	dst[50] = s.Quality
	putRefs(dst[51:], s.Refs)
}

func (SourceCodec) Unmarshal(id int32, src []byte) (Source, error) {
	return Source{
		ID:              id,
		Title:           getString(src[0:25]),
		Publisher:       getString(src[25:41]),
		PublicationDate: Date(getInt32(src[41:45])),
		Date:            Date(getInt32(src[45:49])),
		Version:         src[49],
		Quality:         src[50],
		Refs:            getRefs(src[51:]),
	}, nil
}

func (SourceCodec) Compare(a, b Source) int {
	if c := compareText(a.Title, b.Title); c != 0 {
		return c
	}
	return compareInt(a.Date, b.Date)
}

func (SourceCodec) ID(s Source) int32 { return s.ID }
