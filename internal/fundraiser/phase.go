package fundraiser

import "fmt"

type Phase uint8

const (
	Listing Phase = iota
	FundraisingLive
	FundraisingComplete
	MintingLive
)

var phaseNames = map[Phase]string{
	Listing:             "Listing",
	FundraisingLive:     "FundraisingLive",
	FundraisingComplete: "FundraisingComplete",
	MintingLive:         "MintingLive",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}

	return fmt.Sprintf("Phase(%d)", uint8(p))
}

func ParsePhase(s string) (Phase, error) {
	for phase, name := range phaseNames {
		if name == s {
			return phase, nil
		}
	}

	return 0, fmt.Errorf("unknown phase %q", s)
}
