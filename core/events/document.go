package events

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/mod/semver"
)

// FormatVersion is the document format written by this module.
const FormatVersion = "1.0.0"

// supportedMajor is the only document major version this module reads.
const supportedMajor = "v1"

// InstanceDecl is one object instance present when a scene starts.
type InstanceDecl struct {
	Variables []VariableDecl
	Hidden    bool
	Animation float64
}

// ObjectDecl declares an object, its default variables and its instances.
type ObjectDecl struct {
	Name      string
	Variables []VariableDecl
	Instances []InstanceDecl
}

// Document is an events sheet together with the scene it runs against and
// the external sheets its Link events may reference.
type Document struct {
	FormatVersion    string
	Sheet            *Sheet
	SceneVariables   []VariableDecl
	ProjectVariables []VariableDecl
	Objects          []ObjectDecl
	External         map[string]*Sheet
}

// VersionError is returned for documents written by an unsupported format.
type VersionError struct {
	Version string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unsupported format version %q (want %s.x.y)", e.Version, supportedMajor)
}

type wireInstance struct {
	Variables []wireVariableIn `json:"variables"`
	Hidden    bool             `json:"hidden"`
	Animation float64          `json:"animation"`
}

type wireObject struct {
	Name      string           `json:"name"`
	Variables []wireVariableIn `json:"variables"`
	Instances []wireInstance   `json:"instances"`
}

type wireExternal struct {
	Name   string      `json:"name"`
	Events []wireEvent `json:"events"`
}

type wireDocument struct {
	FormatVersion    string           `json:"formatVersion"`
	Name             string           `json:"name"`
	Events           []wireEvent      `json:"events"`
	SceneVariables   []wireVariableIn `json:"sceneVariables"`
	ProjectVariables []wireVariableIn `json:"projectVariables"`
	Objects          []wireObject     `json:"objects"`
	ExternalEvents   []wireExternal   `json:"externalEvents"`
}

// Decode validates and parses either a bare events list or a full document.
// name is used for the sheet when the payload does not carry one.
func Decode(name string, data []byte) (*Document, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		sheet, err := DecodeEvents(name, trimmed)
		if err != nil {
			return nil, err
		}
		return &Document{FormatVersion: FormatVersion, Sheet: sheet}, nil
	}

	var wd wireDocument
	if err := json.Unmarshal(trimmed, &wd); err != nil {
		return nil, &DecodeError{Message: err.Error()}
	}
	if err := checkVersion(wd.FormatVersion); err != nil {
		return nil, err
	}
	if wd.Name != "" {
		name = wd.Name
	}

	doc := &Document{FormatVersion: wd.FormatVersion, External: make(map[string]*Sheet)}
	if doc.FormatVersion == "" {
		doc.FormatVersion = FormatVersion
	}

	trees, err := treesFromWire(wd.Events, "")
	if err != nil {
		return nil, err
	}
	doc.Sheet = FromTrees(name, trees)

	for _, ext := range wd.ExternalEvents {
		trees, err := treesFromWire(ext.Events, "")
		if err != nil {
			return nil, fmt.Errorf("external events %q: %w", ext.Name, err)
		}
		doc.External[ext.Name] = FromTrees(ext.Name, trees)
	}

	if doc.SceneVariables, err = declsFromWire(wd.SceneVariables); err != nil {
		return nil, err
	}
	if doc.ProjectVariables, err = declsFromWire(wd.ProjectVariables); err != nil {
		return nil, err
	}
	for _, wo := range wd.Objects {
		obj := ObjectDecl{Name: wo.Name}
		if obj.Variables, err = declsFromWire(wo.Variables); err != nil {
			return nil, err
		}
		for _, wi := range wo.Instances {
			inst := InstanceDecl{Hidden: wi.Hidden, Animation: wi.Animation}
			if inst.Variables, err = declsFromWire(wi.Variables); err != nil {
				return nil, err
			}
			obj.Instances = append(obj.Instances, inst)
		}
		doc.Objects = append(doc.Objects, obj)
	}
	return doc, nil
}

func checkVersion(v string) error {
	if v == "" {
		return nil
	}
	canonical := v
	if canonical[0] != 'v' {
		canonical = "v" + canonical
	}
	if !semver.IsValid(canonical) || semver.Major(canonical) != supportedMajor {
		return &VersionError{Version: v}
	}
	return nil
}
