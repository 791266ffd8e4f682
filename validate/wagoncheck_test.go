//go:build wagoncheck

package validate

import (
	"bytes"
	"testing"

	"github.com/go-interpreter/wagon/wasm"
)

// crossCheckWithWagon decodes raw with both this package's Validate and
// wagon's wasm.ReadModule, then compares section-level shapes. It exists as
// a differential oracle against an independent decoder during development,
// never in the default build graph (hence the build tag) and never on any
// runtime path.
func crossCheckWithWagon(t *testing.T, raw []byte) {
	t.Helper()

	info, err := Validate(raw)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	mod, err := wasm.ReadModule(bytes.NewReader(raw), nil)
	if err != nil {
		t.Fatalf("wagon.ReadModule: %v", err)
	}

	if mod.Types != nil && len(mod.Types.Entries) != len(info.Types) {
		t.Errorf("type count mismatch: wagon=%d ours=%d", len(mod.Types.Entries), len(info.Types))
	}
	if mod.Import != nil && len(mod.Import.Entries) != len(info.Imports) {
		t.Errorf("import count mismatch: wagon=%d ours=%d", len(mod.Import.Entries), len(info.Imports))
	}
	if mod.Export != nil && len(mod.Export.Entries) != len(info.Exports) {
		t.Errorf("export count mismatch: wagon=%d ours=%d", len(mod.Export.Entries), len(info.Exports))
	}
	if mod.Code != nil && len(mod.Code.Bodies) != len(info.Code) {
		t.Errorf("code body count mismatch: wagon=%d ours=%d", len(mod.Code.Bodies), len(info.Code))
	}
}

func TestCrossCheckWithWagon_Empty(t *testing.T) {
	crossCheckWithWagon(t, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})
}
