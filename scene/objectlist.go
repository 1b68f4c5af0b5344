package scene

import (
	"errors"
	"iter"
)

// Memory is read access to local memory. *pvr.Memory, the simulator and
// loaded snapshots all satisfy it.
type Memory interface {
	ReadWord(addr uint32) (uint32, error)
}

// MaxChainEntries bounds the number of words visited in one Object List.
// A conformant list is far shorter; reaching the bound means the links
// form a cycle or point into garbage.
const MaxChainEntries = 1 << 16

// Located is an entry together with the byte address it was read from.
type Located struct {
	Addr  uint32
	Entry Entry
}

// ObjectList returns a lazy sequence of the entries of the Object List
// starting at byte address addr. Geometry entries advance by one word;
// block links jump to the next OPB. The terminating end-of-list link is
// yielded last.
//
// The sequence yields a non-nil error at most once, as its final element.
func ObjectList(mem Memory, addr uint32) iter.Seq2[Located, error] {
	return func(yield func(Located, error) bool) {
		for n := 0; ; n++ {
			if n >= MaxChainEntries {
				yield(Located{Addr: addr}, &DecodeError{Addr: addr, Err: ErrChainTooLong})
				return
			}
			raw, err := mem.ReadWord(addr)
			if err != nil {
				yield(Located{Addr: addr}, &DecodeError{Addr: addr, Err: err})
				return
			}
			e, err := DecodeEntry(raw)
			if err != nil {
				var de *DecodeError
				if errors.As(err, &de) {
					de.Addr = addr
				}
				yield(Located{Addr: addr}, err)
				return
			}
			if !yield(Located{Addr: addr, Entry: e}, nil) {
				return
			}
			link, ok := e.(BlockLink)
			switch {
			case !ok:
				addr += 4
			case link.EndOfList:
				return
			default:
				addr = link.Next
			}
		}
	}
}

// Entries collects the whole Object List at addr, terminating link
// included.
func Entries(mem Memory, addr uint32) ([]Located, error) {
	var out []Located
	for loc, err := range ObjectList(mem, addr) {
		if err != nil {
			return out, err
		}
		out = append(out, loc)
	}
	return out, nil
}

// References collects only the geometry entries of the Object List at
// addr.
func References(mem Memory, addr uint32) ([]Located, error) {
	var out []Located
	for loc, err := range ObjectList(mem, addr) {
		if err != nil {
			return out, err
		}
		if IsGeometry(loc.Entry) {
			out = append(out, loc)
		}
	}
	return out, nil
}
