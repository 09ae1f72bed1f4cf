package models

type SelectionKind int

const (
	SelectionEmpty SelectionKind = iota
	SelectionURL
	SelectionTerminate
)

func (k SelectionKind) String() string {
	switch k {
	case SelectionURL:
		return "url"
	case SelectionTerminate:
		return "terminate"
	default:
		return "empty"
	}
}

// Selection is the oracle's answer for one ranking step.
type Selection struct {
	Kind SelectionKind
	URL  string
}

func SelectURL(u string) Selection { return Selection{Kind: SelectionURL, URL: u} }

func SelectTerminate() Selection { return Selection{Kind: SelectionTerminate} }

func SelectEmpty() Selection { return Selection{Kind: SelectionEmpty} }
