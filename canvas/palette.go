package canvas

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Palette is the fixed set of user colors, handed out in rotation.
var Palette = [...]string{
	"#ff6b6b", "#feca57", "#48dbfb", "#1dd1a1", "#5f27cd",
	"#ff9ff3", "#54a0ff", "#00d2d3", "#c8d6e5", "#576574",
}

const userIDLen = 10

// User is a connected participant. It never changes after it is issued.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// identities issues users. Names count joins since start rather than the
// users currently connected, so a name is never handed out twice. Colors
// follow the number of users connected at join time.
type identities struct {
	joined int
}

func (ids *identities) next(connected int) User {
	ids.joined++
	return User{
		ID:    newUserID(),
		Name:  fmt.Sprintf("User-%d", ids.joined),
		Color: Palette[connected%len(Palette)],
	}
}

func newUserID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:userIDLen]
}
