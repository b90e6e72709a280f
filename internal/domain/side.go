package domain

// Side represents the market side a bid ladder belongs to.
type Side string

const (
	SideDemand Side = "DEMAND"
	SideSupply Side = "SUPPLY"
)

// String returns the string representation of Side.
func (s Side) String() string {
	return string(s)
}

// IsValid checks if the side is a valid value.
func (s Side) IsValid() bool {
	return s == SideDemand || s == SideSupply
}
