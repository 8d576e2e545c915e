// Package hclpatch loads patches written in HCL.
//
//	patch "demo" {
//	  input = "mic"
//	  module "distortion" "drive" { params = { amount = 250 } }
//	  module "splitter" "split" {
//	    params = { crossfade = 0.25 }
//	    branch { module "delay" "slap" { params = { time = 0.12 } } }
//	    branch { module "autopan" "wobble" { bypass = true } }
//	  }
//	}
//
// Parameter values are kept as cty values; the registry converts and
// range-checks them when the modules are built.
package hclpatch
