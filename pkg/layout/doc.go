// Package layout describes a registry in YAML and builds it.
//
// A layout lists metadata keys and blocks; each block lists its fields
// with the class, type specification, register definition and any
// attribute lines, in the order they are created:
//
//	blocks:
//	  - name: PULSE
//	    count: 4
//	    base: 6
//	    fields:
//	      - name: WIDTH
//	        class: time
//	        register: 4 5 > 5
//
// Default returns a built-in layout shaped like a small PandA design.
package layout
