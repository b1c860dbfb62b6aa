// Package cidr implements the IPv4 address-range arithmetic behind network
// planning: parsing and formatting dotted-quad/prefix strings, pairwise
// overlap detection, and automatic allocation of non-overlapping ranges in
// the 10.0.0.0/8 planning space.
//
// Only IPv4 is supported. All functions are pure; parsed ranges are plain
// values and carry no I/O or retained state.
package cidr

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"

	"github.com/cloudplane/cloudplane/internal/clouderr"
)

// Block is a parsed IPv4 range: integer address bounds plus the prefix
// length. Start is the network base address (host bits cleared) and
// End = Start + Size() - 1, so Start <= End always holds.
type Block struct {
	Start  uint32
	End    uint32
	Prefix int
}

// Size returns the number of addresses in the block, 2^(32-Prefix).
func (b Block) Size() uint64 {
	return 1 << (32 - b.Prefix)
}

// String renders the block in canonical dotted-quad/prefix form.
func (b Block) String() string {
	return fmt.Sprintf("%s/%d", Format(b.Start), b.Prefix)
}

// secondOctet extracts the second octet of an address, the planning
// coordinate inside the 10.x.0.0 space.
func secondOctet(addr uint32) int {
	return int(addr >> 16 & 0xff)
}

// Parse parses a dotted-quad/prefix string into a Block. The address is
// normalized to the network base, so "10.5.3.0/16" parses to the same block
// as "10.5.0.0/16".
//
// Fails with a CIDR_INVALID error on a malformed dotted quad, an octet
// outside 0-255, a prefix outside 0-32, or an IPv6 address.
func Parse(s string) (Block, error) {
	_, network, err := net.ParseCIDR(s)
	if err != nil {
		return Block{}, clouderr.Newf(clouderr.CodeCidrInvalid, "invalid cidr %q: %w", s, err)
	}
	if network.IP.To4() == nil {
		return Block{}, clouderr.Newf(clouderr.CodeCidrInvalid, "invalid cidr %q: only IPv4 is supported", s)
	}

	prefix, bits := network.Mask.Size()
	if bits != 32 {
		// v4-mapped v6 input (::ffff:10.0.0.0/112) passes To4 but keeps a
		// 128-bit mask, so the prefix would be outside 0-32.
		return Block{}, clouderr.Newf(clouderr.CodeCidrInvalid, "invalid cidr %q: only IPv4 is supported", s)
	}
	start := addrToInt(network.IP)
	size := uint64(1) << (32 - prefix)
	// The masked base is aligned to the block size, so the end never
	// exceeds 255.255.255.255.
	// #nosec G115
	end := start + uint32(size-1)

	return Block{Start: start, End: end, Prefix: prefix}, nil
}

// Format renders an integer address as a dotted quad, the inverse of the
// address-to-integer mapping used by Parse.
func Format(addr uint32) string {
	return intToAddr(addr).String()
}

// Overlaps reports whether two blocks share at least one address. The test
// is closed-interval, so identical blocks overlap and byte-adjacent blocks
// of equal size do not.
func Overlaps(a, b Block) bool {
	return a.Start <= b.End && b.Start <= a.End
}

// Overlap is an unordered pair of colliding blocks.
type Overlap struct {
	A Block
	B Block
}

// String renders the pair for error messages.
func (o Overlap) String() string {
	return fmt.Sprintf("%s and %s", o.A, o.B)
}

// DetectOverlaps scans all pairs and returns every colliding one. Input
// lists are small (bounded by target count), so the quadratic scan is fine.
func DetectOverlaps(blocks []Block) []Overlap {
	var overlaps []Overlap
	for i := 0; i < len(blocks); i++ {
		for j := i + 1; j < len(blocks); j++ {
			if Overlaps(blocks[i], blocks[j]) {
				overlaps = append(overlaps, Overlap{A: blocks[i], B: blocks[j]})
			}
		}
	}
	return overlaps
}

// AssertNoOverlaps parses the given ranges and fails with a CIDR_OVERLAP
// error naming every colliding pair and the full input list if any two
// overlap. Malformed input fails with CIDR_INVALID.
func AssertNoOverlaps(cidrs []string) error {
	blocks := make([]Block, 0, len(cidrs))
	for _, s := range cidrs {
		block, err := Parse(s)
		if err != nil {
			return err
		}
		blocks = append(blocks, block)
	}

	overlaps := DetectOverlaps(blocks)
	if len(overlaps) == 0 {
		return nil
	}

	pairs := make([]string, 0, len(overlaps))
	for _, o := range overlaps {
		pairs = append(pairs, o.String())
	}
	return clouderr.Newf(clouderr.CodeCidrOverlap,
		"overlapping cidr ranges: %s (input: %v)", strings.Join(pairs, "; "), cidrs)
}

// addrToInt converts an IPv4 address to its integer value.
func addrToInt(ip net.IP) uint32 {
	return binary.BigEndian.Uint32(ip.To4())
}

// intToAddr converts an integer value back to an IPv4 address.
func intToAddr(val uint32) net.IP {
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, val)
	return ip
}
