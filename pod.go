package fattree

// file pod.go holds the index arithmetic that decides which lower-tier node
// connects to which upper-tier nodes.  All of it is integer arithmetic; any
// division whose result is used as a count goes through exactDiv, and any index
// a rule produces is range-checked before it is used.

import "fmt"

// exactDiv returns a/b and refuses to do so when b does not divide a evenly
func exactDiv(a, b int) (int, error) {
	if b <= 0 {
		return 0, fmt.Errorf("%w: divisor %d is not positive", ErrConfig, b)
	}
	if a%b != 0 {
		return 0, fmt.Errorf("%w: %d is not divisible by %d", ErrConfig, a, b)
	}
	return a / b, nil
}

// coreHalf returns the positions of the core switches the aggregation switch at
// aggrPos connects to: the first half of the core tier for even positions, the
// second half for odd ones
func coreHalf(aggrPos, coreCount int) ([]int, error) {
	half, err := exactDiv(coreCount, 2)
	if err != nil {
		return nil, err
	}
	if aggrPos < 0 {
		return nil, fmt.Errorf("%w: negative aggregation position %d", ErrInternal, aggrPos)
	}

	first := 0
	if aggrPos%2 == 1 {
		first = half
	}

	positions := make([]int, half)
	for idx := range positions {
		positions[idx] = first + idx
	}
	if last := positions[half-1]; last >= coreCount {
		return nil, fmt.Errorf("%w: core position %d out of range [0,%d)", ErrInternal, last, coreCount)
	}
	return positions, nil
}

// podBase is the position of the first edge switch of the pod holding edgePos
func podBase(edgePos int) int {
	if edgePos%2 == 0 {
		return edgePos
	}
	return edgePos - 1
}

// aggrPair returns the contiguous pair of aggregation positions the edge switch
// at edgePos connects to
func aggrPair(edgePos, aggrCount int) ([2]int, error) {
	if edgePos < 0 {
		return [2]int{}, fmt.Errorf("%w: negative edge position %d", ErrInternal, edgePos)
	}
	base := podBase(edgePos)
	if base+1 >= aggrCount {
		return [2]int{}, fmt.Errorf("%w: pod of edge position %d needs aggregation positions %d and %d, only %d exist",
			ErrInternal, edgePos, base, base+1, aggrCount)
	}
	return [2]int{base, base + 1}, nil
}

// hostEdge returns the position of the edge switch serving the host at hostPos.
// Hosts are grouped contiguously, hostsPerEdge to a switch, so this is the floor
// of hostPos/hostsPerEdge for every position, odd or even.
func hostEdge(hostPos, hostsPerEdge, edgeCount int) (int, error) {
	if hostsPerEdge <= 0 {
		return 0, fmt.Errorf("%w: hosts per edge switch must be positive, got %d", ErrConfig, hostsPerEdge)
	}
	if hostPos < 0 {
		return 0, fmt.Errorf("%w: negative host position %d", ErrInternal, hostPos)
	}
	edgePos := hostPos / hostsPerEdge
	if edgePos >= edgeCount {
		return 0, fmt.Errorf("%w: host position %d maps to edge position %d, only %d exist",
			ErrInternal, hostPos, edgePos, edgeCount)
	}
	return edgePos, nil
}
