package instruction

import (
	"strings"

	"github.com/fyrsmithlabs/vibed/internal/project"
)

// Recognized substitution variables. Unrecognized dollar tokens in
// instruction text pass through untouched; these are replaced with
// their resolved values, or with an empty string when unset, and
// substitution never fails a generation.
const (
	VarArchitectureDoc = "ARCHITECTURE_DOC"
	VarRequirementsDoc = "REQUIREMENTS_DOC"
	VarDesignDoc       = "DESIGN_DOC"
	VarPlanFile        = "PLAN_FILE"
	VarProjectPath     = "PROJECT_PATH"
	VarBranch          = "BRANCH"
	VarWorkflow        = "WORKFLOW"
	VarRole            = "ROLE"
)

// variables resolves every recognized variable for a request. Document
// variables resolve to their conventional .vibed/docs paths only when
// the document exists; a phase referencing $DESIGN_DOC before setup
// renders cleanly without a dangling path.
func variables(req *Request) map[string]string {
	docs := project.ExistingDocs(req.ProjectPath)
	return map[string]string{
		VarArchitectureDoc: docs.Architecture,
		VarRequirementsDoc: docs.Requirements,
		VarDesignDoc:       docs.Design,
		VarPlanFile:        req.PlanFilePath,
		VarProjectPath:     req.ProjectPath,
		VarBranch:          req.Branch,
		VarWorkflow:        req.WorkflowName,
		VarRole:            req.Role,
	}
}

// substitute performs textual replacement of the recognized variables
// in both $NAME and ${NAME} forms.
func substitute(text string, req *Request) string {
	vars := variables(req)
	pairs := make([]string, 0, len(vars)*4)
	for name, value := range vars {
		pairs = append(pairs, "${"+name+"}", value, "$"+name, value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// templateData exposes the same resolution to {{ }} template
// expressions, keyed for template field access.
func templateData(req *Request) map[string]any {
	vars := variables(req)
	data := make(map[string]any, len(vars)+2)
	for name, value := range vars {
		data[name] = value
	}
	data["Phase"] = req.Phase
	data["Backend"] = string(req.Backend.Kind)
	return data
}
