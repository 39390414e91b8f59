/*
Copyright (c) 2019-2021 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

// Command version stamps the release number, the module path and the
// built-in machine list into the version package.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/pkg/errors"

	"github.com/andreas-jonsson/romxt/emulator/machine"
)

const (
	startYear    = 2019
	copyrightFmt = "Copyright (c) %s Andreas T Jonsson"
)

var defaultRelease = release{0, 1, 0, ""}

type release struct {
	Major, Minor, Patch byte
	Build               string
}

func (r release) String() string {
	if r.Build == "" {
		return fmt.Sprintf("%d.%d.%d", r.Major, r.Minor, r.Patch)
	}
	return fmt.Sprintf("%d.%d.%d.%s", r.Major, r.Minor, r.Patch, r.Build)
}

type stamp struct {
	release
	Package   string
	Module    string
	Hash      string
	Copyright string
	Machines  []string
}

// parseRelease reads major.minor.patch.build. A zero build is dropped.
func parseRelease(s string) (release, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return release{}, errors.Errorf("invalid version format: %q", s)
	}

	var nums [3]byte
	for i := range nums {
		n, err := strconv.ParseUint(parts[i], 10, 8)
		if err != nil {
			return release{}, errors.Wrapf(err, "version %q", s)
		}
		nums[i] = byte(n)
	}

	r := release{nums[0], nums[1], nums[2], parts[3]}
	if r.Build == "0" {
		r.Build = ""
	}
	return r, nil
}

// modulePath returns the path named by the module directive of a go.mod file.
func modulePath(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 2 && fields[0] == "module" {
			return strings.Trim(fields[1], `"`), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", errors.New("no module directive")
}

func copyright(year int) string {
	if year <= startYear {
		return fmt.Sprintf(copyrightFmt, strconv.Itoa(startYear))
	}
	return fmt.Sprintf(copyrightFmt, fmt.Sprintf("%d-%d", startYear, year))
}

func gitHash() string {
	res, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		log.Print("could not read the Git hash: ", err)
		return ""
	}
	return strings.TrimSpace(string(res))
}

func readModule(name string) string {
	fp, err := os.Open(name)
	if err != nil {
		log.Print(err)
		return ""
	}
	defer fp.Close()

	mod, err := modulePath(fp)
	if err != nil {
		log.Printf("%s: %v", name, err)
	}
	return mod
}

func render(w io.Writer, s stamp) error {
	return source.Execute(w, s)
}

func main() {
	file := flag.String("file", "-", "Save the generated output to file.")
	pkg := flag.String("package", "version", "Package name of the generated output.")
	gomod := flag.String("gomod", "../go.mod", "The go.mod file naming the module.")
	env := flag.String("variable", "ROMXT_VERSION", "Environment variable containing the version number (major.minor.patch.build).")
	flag.Parse()

	rel := defaultRelease
	if v := os.Getenv(*env); v == "" {
		log.Printf("%s is not set. Defaulting to %s", *env, defaultRelease)
	} else if r, err := parseRelease(v); err != nil {
		log.Print(err)
	} else {
		rel = r
	}

	s := stamp{
		release:   rel,
		Package:   *pkg,
		Module:    readModule(*gomod),
		Hash:      gitHash(),
		Copyright: copyright(time.Now().Year()),
		Machines:  machine.Names(),
	}

	out := io.Writer(os.Stdout)
	if *file != "-" {
		if err := os.MkdirAll(filepath.Dir(*file), 0777); err != nil {
			log.Fatal(err)
		}
		fp, err := os.Create(*file)
		if err != nil {
			log.Fatal(err)
		}
		defer fp.Close()
		out = fp
	}

	if err := render(out, s); err != nil {
		log.Panicln(err)
	}
}

var source = template.Must(template.New("version").Parse(`/*
{{.Copyright}}

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package {{.Package}}

var (
	Current   = Version{ {{.Major}}, {{.Minor}}, {{.Patch}}, "{{.Build}}" }
	Copyright = "{{.Copyright}}"
	Hash      = "{{.Hash}}"
	Module    = "{{.Module}}"
)

// Machines lists the built-in machine profiles.
var Machines = []string{
{{- range .Machines}}
	"{{.}}",
{{- end}}
}
`))
