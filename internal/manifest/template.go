package manifest

import (
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// podTemplate is the single-container Pod every job runs in.
const podTemplate = `apiVersion: v1
kind: Pod
metadata:
  name: {{ .PodName | quote }}
spec:
  containers:
  - command:
    - cat
    image: {{ .ImageURL }}
    imagePullPolicy: "Always"
    name: {{ .ContainerName | quote }}
    resources:
      limits:{{ with .Limits }} {{ . }}{{ end }}
      requests:{{ with .Requests }} {{ . }}{{ end }}
    securityContext:
      privileged: true
    tty: true
    volumeMounts:
{{ .VolumeMounts }}
  hostNetwork: true
  nodeSelector:{{ .NodeSelector | nindent 4 }}
  restartPolicy: "Never"
  securityContext:
    runAsUser: {{ .UID }}
    runAsGroup: {{ .GID }}
  volumes:
{{ .Volumes }}
`

// volumeTemplate is one entry of spec.volumes.
const volumeTemplate = `  - hostPath:
      path: {{ .HostPath | quote }}
    name: {{ .Name | quote }}
`

// mountTemplate is one entry of the container's volumeMounts.
const mountTemplate = `    - mountPath: {{ .MountPath | quote }}
      name: {{ .Name | quote }}
      readOnly: false
`

var (
	podTmpl    = newTemplate("pod", podTemplate)
	volumeTmpl = newTemplate("volume", volumeTemplate)
	mountTmpl  = newTemplate("mount", mountTemplate)
)

// newTemplate parses a built-in template with sprig functions. Every field
// a template references is set by the renderer, so missing keys are errors.
func newTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text))
}

// podFields are the values substituted into podTemplate.
type podFields struct {
	PodName       string
	ImageURL      string
	ContainerName string
	UID           string
	GID           string
	Limits        string
	Requests      string
	NodeSelector  string
	VolumeMounts  string
	Volumes       string
}

// volumeFields are the values substituted into volumeTemplate and mountTemplate.
type volumeFields struct {
	Name      string
	HostPath  string
	MountPath string
}
