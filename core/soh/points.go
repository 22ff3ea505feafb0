package soh

// NMCPoints returns the default degradation anchors for NMC packs, taken
// from cycling measurements of the reference cell. The first segment is the
// steep break-in drop, later segments flatten out.
func NMCPoints() []Point {
	return []Point{
		{ThroughputAh: 29.3, Health: 0.955},
		{ThroughputAh: 57.5, Health: 0.932},
		{ThroughputAh: 84.8, Health: 0.923},
		{ThroughputAh: 112.1, Health: 0.915},
		{ThroughputAh: 139.4, Health: 0.908},
		{ThroughputAh: 166.7, Health: 0.902},
		{ThroughputAh: 194.0, Health: 0.896},
		{ThroughputAh: 221.3, Health: 0.891},
		{ThroughputAh: 248.6, Health: 0.886},
		{ThroughputAh: 276.0, Health: 0.882},
		{ThroughputAh: 554.8, Health: 0.860},
		{ThroughputAh: 816.5, Health: 0.845},
		{ThroughputAh: 1074.6, Health: 0.834},
		{ThroughputAh: 1331.6, Health: 0.825},
		{ThroughputAh: 1586.8, Health: 0.818},
	}
}
