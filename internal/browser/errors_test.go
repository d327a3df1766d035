package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: KindTimeout},
		{name: "wrapped deadline", err: fmt.Errorf("navigate: %w", context.DeadlineExceeded), want: KindTimeout},
		{name: "missing node", err: errors.New("No node with given id found (-32000)"), want: KindStale},
		{name: "detached node", err: errors.New("Node is detached from document"), want: KindStale},
		{name: "no box model", err: errors.New("Could not compute box model. (-32000)"), want: KindNotInteractable},
		{name: "intercepted", err: errors.New("click intercepted by <div>"), want: KindNotInteractable},
		{name: "anything else", err: errors.New("websocket: close 1006"), want: KindDriverFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("op", tt.err)
			assert.Equal(t, tt.want, KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassifyKeepsExistingKind(t *testing.T) {
	orig := Errorf(KindNotFound, "find", "no element %q", "x")
	err := Classify("outer", fmt.Errorf("wrap: %w", orig))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Nil(t, Classify("op", nil))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindDriverFault, KindOf(errors.New("boom")))
	assert.True(t, IsKind(NewError(KindStale, "click", "", nil), KindStale))
	assert.False(t, IsKind(nil, KindStale))
}

func TestErrorMessage(t *testing.T) {
	err := NewError(KindTimeout, "navigate", "https://example.com after 3 attempts", context.DeadlineExceeded)
	assert.Equal(t, "navigate: timeout: https://example.com after 3 attempts: context deadline exceeded", err.Error())
}

func TestParseBy(t *testing.T) {
	tests := []struct {
		in      string
		want    By
		wantErr bool
	}{
		{in: "id", want: ByID},
		{in: " NAME ", want: ByName},
		{in: "css", want: ByCSS},
		{in: "css_selector", want: ByCSS},
		{in: "XPath", want: ByXPath},
		{in: "link_text", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBy(tt.in)
			if tt.wantErr {
				assert.True(t, IsKind(err, KindInvalid))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocatorCSSSelector(t *testing.T) {
	sel, ok := ID(`q"box`).CSSSelector()
	assert.True(t, ok)
	assert.Equal(t, `[id="q\"box"]`, sel)

	sel, ok = Name("q").CSSSelector()
	assert.True(t, ok)
	assert.Equal(t, `[name="q"]`, sel)

	_, ok = XPath("//a").CSSSelector()
	assert.False(t, ok)
	assert.Equal(t, "xpath=//a", XPath("//a").String())
}
