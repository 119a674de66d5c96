package resource

import (
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/andewx/vkengine/internal/logx"
)

// ShaderSource is the compiled SPIR-V loaded for one program: one
// module per stage, keyed by file extension (.vert, .frag, ...).
type ShaderSource struct {
	Words map[string][]uint32
}

// LoadShaderProgram compiles every .vert/.frag/.comp file in dir
// whose basename matches id to SPIR-V and returns the result keyed by
// stage extension. Grounded on the teacher's shader.go
// (LoadShaderModule's raw-bytes-to-uint32 conversion) and
// mrigankad-gorenderengine/renderer/shaders.go:CompileShaderGLSL for
// the external-compiler invocation.
func LoadShaderProgram(id, dir string) (interface{}, error) {
	stages := []string{".vert", ".frag", ".comp"}
	out := &ShaderSource{Words: make(map[string][]uint32)}
	for _, stage := range stages {
		path := filepath.Join(dir, id+stage)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		words, err := compileGLSL(path)
		if err != nil {
			return nil, fmt.Errorf("resource: compile %s: %w", path, err)
		}
		out.Words[stage] = words
	}
	if len(out.Words) == 0 {
		return nil, fmt.Errorf("resource: no shader stages found for %q in %s", id, dir)
	}
	return out, nil
}

// compileGLSL shells out to glslc (preferred) or glslangValidator,
// then reads the resulting SPIR-V back as a uint32 word stream (the
// form vk.ShaderModuleCreateInfo.PCode expects).
func compileGLSL(srcPath string) ([]uint32, error) {
	outPath := srcPath + ".spv"
	defer os.Remove(outPath)

	var cmd *exec.Cmd
	if _, err := exec.LookPath("glslc"); err == nil {
		args := []string{srcPath, "-o", outPath}
		if logx.Debug() {
			args = append(args, "-g")
		} else {
			args = append(args, "-O")
		}
		cmd = exec.Command("glslc", args...)
	} else if _, err := exec.LookPath("glslangValidator"); err == nil {
		cmd = exec.Command("glslangValidator", "-V", srcPath, "-o", outPath)
	} else {
		return nil, fmt.Errorf("no shader compiler found (glslc or glslangValidator) on PATH")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, output)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, err
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}
