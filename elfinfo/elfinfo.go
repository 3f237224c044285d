// Package elfinfo classifies candidate test images by inspecting their
// ELF headers directly, without shelling out to an external file-type
// utility.
package elfinfo

import (
	"debug/elf"
	"os"

	"github.com/riscv-tools/sim-acceptor/types"
)

// Info describes the classification of a candidate file.
type Info struct {
	IsELF     bool
	IsRISCV   bool
	WordWidth int // 32 or 64, zero when not an ELF
}

// Inspect classifies the file at path. Directories, unreadable files and
// files that are not valid ELF images are reported as non-images rather
// than errors; classification is a predicate, not a validation step.
func Inspect(path string) Info {
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return Info{}
	}

	f, err := elf.Open(path)
	if err != nil {
		return Info{}
	}
	defer f.Close()

	info := Info{
		IsELF:   true,
		IsRISCV: f.Machine == elf.EM_RISCV,
	}
	switch f.Class {
	case elf.ELFCLASS32:
		info.WordWidth = 32
	case elf.ELFCLASS64:
		info.WordWidth = 64
	}
	return info
}

// Matches reports whether the classified file is a RISC-V ELF image of
// the requested word-width.
func (i Info) Matches(w types.Width) bool {
	return i.IsELF && i.IsRISCV && i.WordWidth == int(w)
}
