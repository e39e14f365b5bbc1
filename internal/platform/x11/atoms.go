package x11

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

type atoms struct {
	wmState           xproto.Atom
	wmStateFullScreen xproto.Atom
	motifHints        xproto.Atom
	utf8String        xproto.Atom
	netWMName         xproto.Atom
}

func internAtoms(conn *xgb.Conn) (*atoms, error) {
	names := []string{
		"_NET_WM_STATE",
		"_NET_WM_STATE_FULLSCREEN",
		"_MOTIF_WM_HINTS",
		"UTF8_STRING",
		"_NET_WM_NAME",
	}

	cookies := make([]xproto.InternAtomCookie, len(names))
	for i, name := range names {
		cookies[i] = xproto.InternAtom(conn, false, uint16(len(name)), name)
	}

	ids := make([]xproto.Atom, len(names))
	for i, c := range cookies {
		reply, err := c.Reply()
		if err != nil {
			return nil, fmt.Errorf("failed to intern atom %s: %w", names[i], err)
		}
		ids[i] = reply.Atom
	}

	return &atoms{
		wmState:           ids[0],
		wmStateFullScreen: ids[1],
		motifHints:        ids[2],
		utf8String:        ids[3],
		netWMName:         ids[4],
	}, nil
}

// uint32s packs values in the byte order of the connection, which xgb
// always negotiates as little endian
func uint32s(values ...uint32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		xgb.Put32(buf[4*i:], v)
	}
	return buf
}
