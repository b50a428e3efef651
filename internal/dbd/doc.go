// Package dbd decodes ASCII conversions of glider binary data (dbd2asc output)
// into sparse rows of readings, and merges a flight and a science stream into
// one time-ordered sequence.
//
// A converted dump looks like:
//
//	dbd_label: DBD_ASC(dinkum_binary_data_ascii)file
//	...
//	m_present_time m_lat m_depth
//	timestamp lat m
//	8 8 4
//	1400000000.5 -8330.567 NaN
//
// Everything before the line naming m_present_time is ignored. The two lines
// that follow carry units and byte counts. Each data line is column-aligned
// with the header and uses NaN for missing values.
package dbd
