package entity

const (
	playerLastNameLen  = 30
	playerFirstNameLen = 20
	playerNamesSize    = playerLastNameLen + playerFirstNameLen
)

type Player struct {
	ID        int32  `json:"id"`
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
	Refs
}

// PlayerKey builds a search key for the player index.
func PlayerKey(lastName, firstName string) Player {
	return Player{ID: -1, LastName: lastName, FirstName: firstName}
}

// FullName is "Last, First", or just the last name when the first name is unknown.
func (p Player) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	return p.LastName + ", " + p.FirstName
}

// PlayerCodec is the current player record layout: names followed by the game refs.
type PlayerCodec struct{}

func (PlayerCodec) Size() int { return playerNamesSize + refsSize }

func (PlayerCodec) Marshal(p Player, dst []byte) {
	putString(dst[0:playerLastNameLen], p.LastName)
	putString(dst[playerLastNameLen:playerNamesSize], p.FirstName)
	putRefs(dst[playerNamesSize:], p.Refs)
}

func (PlayerCodec) Unmarshal(id int32, src []byte) (Player, error) {
	return Player{
		ID:        id,
		LastName:  getString(src[0:playerLastNameLen]),
		FirstName: getString(src[playerLastNameLen:playerNamesSize]),
		Refs:      getRefs(src[playerNamesSize:]),
	}, nil
}

func (PlayerCodec) Compare(a, b Player) int { return comparePlayers(a, b) }

func (PlayerCodec) ID(p Player) int32 { return p.ID }

// PlayerCodecV0 is the original layout that carried only the names. Files written
// with it are still readable by PlayerCodec and vice versa.
type PlayerCodecV0 struct{}

func (PlayerCodecV0) Size() int { return playerNamesSize }

func (PlayerCodecV0) Marshal(p Player, dst []byte) {
	putString(dst[0:playerLastNameLen], p.LastName)
	putString(dst[playerLastNameLen:playerNamesSize], p.FirstName)
}

func (PlayerCodecV0) Unmarshal(id int32, src []byte) (Player, error) {
	return Player{
		ID:        id,
		LastName:  getString(src[0:playerLastNameLen]),
		FirstName: getString(src[playerLastNameLen:playerNamesSize]),
	}, nil
}

func (PlayerCodecV0) Compare(a, b Player) int { return comparePlayers(a, b) }

func (PlayerCodecV0) ID(p Player) int32 { return p.ID }

func comparePlayers(a, b Player) int {
	if c := compareText(a.LastName, b.LastName); c != 0 {
		return c
	}
	return compareText(a.FirstName, b.FirstName)
}
