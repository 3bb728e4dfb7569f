package graph

// OpType is the closed enum of operations a Node can perform. Custom is the
// open extension point: an OpTypeCustom node carries its own evaluation and
// derivative rules in a CustomOp.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota
	OpTypeConstant
	OpTypeAdd
	OpTypeMul
	OpTypeDiv

	// Fused variants, created only by the compiler's fusion pass.

	// OpTypeFusedMulAdd computes in[0]*in[1] + in[2] (fma).
	OpTypeFusedMulAdd
	// OpTypeFusedMulChain computes the product of all its inputs.
	OpTypeFusedMulChain
	// OpTypeFusedAddChain computes the sum of all its inputs.
	OpTypeFusedAddChain
	// OpTypeFusedScale computes in[0]*in[1] / in[2].
	OpTypeFusedScale

	OpTypeCustom
)

// IsFused returns whether t is one of the fused variants produced by the
// fusion pass.
func (t OpType) IsFused() bool {
	return t >= OpTypeFusedMulAdd && t <= OpTypeFusedScale
}
