package domain

import "strings"

// Invocation is a fully resolved external command line.
type Invocation struct {
	Name string
	Args []string
}

func (i Invocation) String() string {
	return strings.Join(append([]string{i.Name}, i.Args...), " ")
}

// ToolReport is the availability of each external collaborator.
type ToolReport struct {
	DownloadTool  bool `json:"downloadTool"`
	FetchLib      bool `json:"fetchLib"`
	FilterTool    bool `json:"filterTool"`
	TranscodeTool bool `json:"transcodeTool"`
	ProbeTool     bool `json:"probeTool"`
}
