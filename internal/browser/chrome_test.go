package browser

import (
	"testing"

	"github.com/chromedp/cdproto/runtime"
	"github.com/stretchr/testify/assert"
)

func TestBindToTargetsElementObject(t *testing.T) {
	params := bindTo("node-42")(runtime.CallFunctionOn(textJS))

	assert.Equal(t, runtime.RemoteObjectID("node-42"), params.ObjectID)
	assert.Equal(t, textJS, params.FunctionDeclaration)
	assert.Zero(t, params.ExecutionContextID)
}
