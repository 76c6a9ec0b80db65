package entity

const (
	teamTitleLen = 45
	teamSize     = teamTitleLen + 4 + 1 + 4 + 4 + refsSize
)

type Team struct {
	ID     int32  `json:"id"`
	Title  string `json:"title"`
	Number int32  `json:"number"`
	Season bool   `json:"season"`
	Year   int32  `json:"year"`
	Nation int32  `json:"nation"`
	Refs
}

func TeamKey(title string, number int32) Team {
	return Team{ID: -1, Title: title, Number: number}
}

type TeamCodec struct{}

func (TeamCodec) Size() int { return teamSize }

func (TeamCodec) Marshal(t Team, dst []byte) {
	putString(dst[0:45], t.Title)
	putInt32(dst[45:49], t.Number)
	dst[49] = 0
	if t.Season {
		dst[49] = 1
	}
	putInt32(dst[50:54], t.Year)
	putInt32(dst[54:58], t.Nation)
	putRefs(dst[58:], t.Refs)
}

func (TeamCodec) Unmarshal(id int32, src []byte) (Team, error) {
	return Team{
		ID:     id,
		Title:  getString(src[0:45]),
		Number: getInt32(src[45:49]),
		Season: src[49] != 0,
		Year:   getInt32(src[50:54]),
		Nation: getInt32(src[54:58]),
		Refs:   getRefs(src[58:]),
	}, nil
}

// Compare orders teams by title, team number, then the season flag and year.
func (TeamCodec) Compare(a, b Team) int {
	if c := compareText(a.Title, b.Title); c != 0 {
		return c
	}
	if c := compareInt(a.Number, b.Number); c != 0 {
		return c
	}
	if a.Season != b.Season {
		if a.Season {
			return 1
		}
		return -1
	}
	return compareInt(a.Year, b.Year)
}

func (TeamCodec) ID(t Team) int32 { return t.ID }
