package protocol

import (
	"errors"
	"fmt"
)

// ErrUnknownProtocol is returned when a wire protocol id has no known version.
var ErrUnknownProtocol = errors.New("unknown protocol version")

// Version is one entry of the wire-protocol table: a numeric id as sent by
// clients during the handshake and the human-readable release label.
type Version struct {
	ID    int
	Label string
}

func (v Version) String() string {
	return fmt.Sprintf("%s (protocol %d)", v.Label, v.ID)
}

// Lookup resolves a numeric protocol id to its version. The table is scanned
// in release order; ids reused across releases (47 was both 1.4.x and 1.8.0)
// resolve to the earliest entry. There is no default: an id outside the table
// fails with ErrUnknownProtocol.
func Lookup(id int) (Version, error) {
	for _, v := range table {
		if v.ID == id {
			return v, nil
		}
	}
	return Version{}, fmt.Errorf("%w: %d", ErrUnknownProtocol, id)
}

// table maps every supported release to its protocol number. Entries sharing a
// number are releases that did not change the protocol.
var table = []Version{
	{22, "1.0.0"},
	{23, "1.1.0"},
	{28, "1.2.1-3"},
	{29, "1.2.4/5"},
	{39, "1.3.1/2"},
	{47, "1.4.0-2"},
	{48, "1.4.3"},
	{49, "1.4.4/5"},
	{51, "1.4.6/7"},
	{60, "1.5.0/1"},
	{61, "1.5.2"},
	{72, "1.6.0"},
	{73, "1.6.1"},
	{74, "1.6.2"},
	{78, "1.6.4"},
	{4, "1.7.1-5"},
	{5, "1.7.6-10"},
	{47, "1.8.x"},
	{107, "1.9.0/1"},
	{109, "1.9.2/3"},
	{110, "1.9.4"},
	{210, "1.10.x"},
	{315, "1.11.0"},
	{316, "1.11.1/2"},
	{335, "1.12.0"},
	{338, "1.12.1"},
	{340, "1.12.2"},
	{393, "1.13.0"},
	{401, "1.13.1"},
	{404, "1.13.2"},
	{477, "1.14.0"},
	{480, "1.14.1"},
	{485, "1.14.2"},
	{490, "1.14.3"},
	{498, "1.14.4"},
	{573, "1.15.0"},
	{575, "1.15.1"},
	{578, "1.15.2"},
	{735, "1.16.0"},
	{736, "1.16.1"},
	{751, "1.16.2"},
	{753, "1.16.3"},
	{754, "1.16.4/5"},
	{755, "1.17.0"},
	{756, "1.17.1"},
	{757, "1.18.0/1"},
	{758, "1.18.2"},
	{759, "1.19.0"},
	{760, "1.19.1/2"},
	{761, "1.19.3"},
	{762, "1.19.4"},
	{763, "1.20.0/1"},
	{764, "1.20.2"},
	{765, "1.20.3/4"},
	{766, "1.20.5/6"},
	{767, "1.21.0/1"},
	{768, "1.21.2"},
}
