package invitation

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/findy-network/findy-alice/agent/utils"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

var ErrNoInvitation = errors.New("url has no invitation")

// FromURL decodes the invitation of an invitation URL. The invitation is read
// from the oob or c_i query parameter. A plain JSON invitation is accepted
// too. The returned JSON is the decoded invitation as it was in the URL.
func FromURL(s string) (inv Invitation, invJSON string, err error) {
	defer err2.Handle(&err, "invitation from url")

	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		try.To(json.Unmarshal([]byte(s), &inv))
		return inv, s, nil
	}

	u := try.To1(url.Parse(s))
	q := u.Query()
	var encoded string
	for _, name := range []string{"oob", "c_i"} {
		if encoded = q.Get(name); encoded != "" {
			break
		}
	}
	if encoded == "" {
		return inv, "", ErrNoInvitation
	}

	data := try.To1(utils.DecodeB64(encoded))
	try.To(json.Unmarshal(data, &inv))
	return inv, string(data), nil
}
