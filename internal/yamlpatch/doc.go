// Package yamlpatch loads patches written in YAML. The document mirrors the
// HCL form:
//
//	patch:
//	  name: demo
//	  input: mic
//	  modules:
//	    - kind: distortion
//	      name: drive
//	      params: {amount: 250}
//	    - kind: splitter
//	      name: split
//	      params: {crossfade: 0.25}
//	      branches:
//	        - [{kind: delay, name: slap, params: {time: 0.12}}]
//	        - [{kind: autopan, name: wobble, bypass: true}]
//
// Files are decoded into DTOs first and then mapped onto patch.Patch.
package yamlpatch
