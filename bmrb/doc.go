// Package bmrb talks to the public BMRB web API: it downloads entries
// in their JSON projection, individual saveframe categories and the
// NMR-STAR dictionary, returning them as star package values.
package bmrb
