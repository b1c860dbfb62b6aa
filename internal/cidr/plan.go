package cidr

import (
	"fmt"

	"github.com/cloudplane/cloudplane/internal/clouderr"
)

// AutoOffset generates count ranges of the form 10.{base+i*step}.0.0/{prefix}
// for i in [0, count). It fails with CIDR_INVALID exactly when a computed
// second octet falls outside 0-255, i.e. when base+(count-1)*step exceeds
// 255; the boundary value 255 itself succeeds.
func AutoOffset(count, base, step, prefix int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	if prefix < 0 || prefix > 32 {
		return nil, clouderr.Newf(clouderr.CodeCidrInvalid, "prefix %d is outside 0-32", prefix)
	}

	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		octet := base + i*step
		if octet < 0 || octet > 255 {
			return nil, clouderr.Newf(clouderr.CodeCidrInvalid,
				"auto-offset second octet %d is outside 0-255 (count=%d base=%d step=%d)",
				octet, count, base, step)
		}
		out = append(out, fmt.Sprintf("10.%d.0.0/%d", octet, prefix))
	}
	return out, nil
}

// BuildMap allocates one range per name in two phases. Names with an entry
// in explicit keep that range, and the explicit set is asserted mutually
// non-overlapping. Remaining names then receive /16 ranges starting one
// second octet past the highest explicit range, so generated ranges never
// collide with supplied ones. The complete result is asserted overlap-free
// before it is returned.
//
// The offset heuristic assumes explicit ranges sit inside the 10.x.0.0
// planning space at /16 or narrower. When names remain to auto-allocate, an
// explicit range outside that space fails with CIDR_INVALID rather than
// being silently allocated around.
func BuildMap(names []string, explicit map[string]string) (map[string]string, error) {
	assigned := make(map[string]string, len(names))
	var supplied []string
	var remaining []string

	for _, name := range names {
		if c, ok := explicit[name]; ok && c != "" {
			assigned[name] = c
			supplied = append(supplied, c)
		} else {
			remaining = append(remaining, name)
		}
	}
	if err := AssertNoOverlaps(supplied); err != nil {
		return nil, err
	}

	if len(remaining) > 0 {
		base := 0
		for _, c := range supplied {
			block, err := Parse(c)
			if err != nil {
				return nil, err
			}
			if first := int(block.Start >> 24); first != 10 || block.Prefix < 16 {
				return nil, clouderr.Newf(clouderr.CodeCidrInvalid,
					"explicit range %s is outside the 10.x.0.0/16 planning space", c)
			}
			if next := secondOctet(block.Start) + 1; next > base {
				base = next
			}
		}

		auto, err := AutoOffset(len(remaining), base, 1, 16)
		if err != nil {
			return nil, err
		}
		for i, name := range remaining {
			assigned[name] = auto[i]
		}
	}

	all := make([]string, 0, len(names))
	for _, name := range names {
		all = append(all, assigned[name])
	}
	if err := AssertNoOverlaps(all); err != nil {
		return nil, err
	}
	return assigned, nil
}
