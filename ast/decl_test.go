package ast

import (
	"testing"

	"pilc/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodInterfaceType(t *testing.T) {
	class := &ClassDecl{Name: "C", Type: &types.ClassType{Name: "C"}}
	method := &FuncDecl{
		Name:       "m",
		Params:     []*ParamDecl{{Name: "x", Type: types.PrimTypeI64}},
		ResultType: types.PrimTypeBool,
		Parent:     class,
	}

	ft := method.InterfaceType()
	require.Len(t, ft.Params, 2)
	assert.True(t, types.Equals(ft.Params[1], class.Type))
	assert.True(t, ft.Thin)
	assert.Equal(t, "@thin (Int, C) -> Bool", ft.Repr())
}

func TestFreeFunctionDefaultsToUnit(t *testing.T) {
	fn := &FuncDecl{Name: "f"}

	assert.False(t, fn.IsMethod())
	assert.True(t, types.IsUnit(fn.InterfaceType().Result))
}

func TestProtocolSelfIsStable(t *testing.T) {
	proto := &ProtocolDecl{Name: "P"}
	req := &FuncDecl{Name: "r", Parent: proto}

	assert.Same(t, proto.SelfType(), proto.SelfType())
	assert.True(t, types.Equals(req.SelfType(), proto.SelfType()))
}

func TestAccessVisibility(t *testing.T) {
	assert.False(t, AccessInternal.IsExternallyVisible())
	assert.True(t, AccessPublic.IsExternallyVisible())
	assert.True(t, AccessOpen > AccessPublic)
}
