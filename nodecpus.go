package slurmaddons

import (
	"fmt"
)

// NodeCPUMap maps a hostname to the CPU count an external source
// reports for it, typically built from the Nodes=/CPU_IDs= lines of
// scontrol job detail.
type NodeCPUMap map[string]int

// BuildNodeIndex resolves a per-host slot count for every host. A
// positive tasksPerNode applies uniformly to all hosts and needs no
// external data. Otherwise every host must appear in cpus; a missing
// host fails the whole build with ErrUnresolvedHost naming the host,
// so its share is reported unknown instead of counted as zero.
func BuildNodeIndex(hosts []string, tasksPerNode int, cpus NodeCPUMap) (NodeCPUMap, error) {
	idx := make(NodeCPUMap, len(hosts))
	if tasksPerNode > 0 {
		for _, h := range hosts {
			idx[h] = tasksPerNode
		}
		return idx, nil
	}
	for _, h := range hosts {
		n, ok := cpus[h]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedHost, h)
		}
		idx[h] = n
	}
	return idx, nil
}
