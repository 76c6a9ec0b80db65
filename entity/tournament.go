package entity

// TournamentType follows the event classification used by the game headers.
type TournamentType uint8

const (
	TournamentUnknown TournamentType = iota
	TournamentRoundRobin
	TournamentSwiss
	TournamentMatch
	TournamentKnockout
	TournamentSimul
	TournamentTeam
)

// Tournament flags.
const (
	TournamentComplete uint8 = 1 << iota
	TournamentBoardPoints
	TournamentThreePointsWin
)

const (
	tournamentTitleLen = 40
	tournamentPlaceLen = 30
	tournamentSize     = tournamentTitleLen + 4 + 4 + tournamentPlaceLen + refsSize
)

type Tournament struct {
	ID       int32          `json:"id"`
	Title    string         `json:"title"`
	Date     Date           `json:"date"`
	Category uint8          `json:"category"`
	Rounds   uint8          `json:"rounds"`
	Type     TournamentType `json:"type"`
	Flags    uint8          `json:"flags"`
	Place    string         `json:"place"`
	Refs
}

func TournamentKey(title, place string, date Date) Tournament {
	return Tournament{ID: -1, Title: title, Place: place, Date: date}
}

type TournamentCodec struct{}

func (TournamentCodec) Size() int { return tournamentSize }

func (TournamentCodec) Marshal(t Tournament, dst []byte) {
	putString(dst[0:40], t.Title)
	putInt32(dst[40:44], int32(t.Date))
	dst[44] = t.Category
	dst[45] = t.Rounds
	dst[46] = uint8(t.Type)
	dst[47] = t.Flags
	putString(dst[48:78], t.Place)
	putRefs(dst[78:], t.Refs)
}

func (TournamentCodec) Unmarshal(id int32, src []byte) (Tournament, error) {
	return Tournament{
		ID:       id,
		Title:    getString(src[0:40]),
		Date:     Date(getInt32(src[40:44])),
		Category: src[44],
		Rounds:   src[45],
		Type:     TournamentType(src[46]),
		Flags:    src[47],
		Place:    getString(src[48:78]),
		Refs:     getRefs(src[78:]),
	}, nil
}

// Compare orders tournaments by year, then title, then place.
func (TournamentCodec) Compare(a, b Tournament) int {
	if c := compareInt(a.Date.Year(), b.Date.Year()); c != 0 {
		return c
	}
	if c := compareText(a.Title, b.Title); c != 0 {
		return c
	}
	return compareText(a.Place, b.Place)
}

func (TournamentCodec) ID(t Tournament) int32 { return t.ID }
