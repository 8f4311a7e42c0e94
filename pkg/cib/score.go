package cib

import "math"

var (
	posInf = math.Inf(1)
	negInf = math.Inf(-1)
)
