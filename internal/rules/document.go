package rules

// Document is the on-disk rule file. The same shape is accepted as JSON from
// the rule generator and re-encoded as YAML.
type Document struct {
	Rules []RuleSpec `yaml:"rules" json:"rules"`
}

// RuleSpec is one undecoded rule entry.
type RuleSpec struct {
	Name    string      `yaml:"name" json:"name"`
	Match   MatchSpec   `yaml:"match,omitempty" json:"match,omitempty"`
	Dest    string      `yaml:"dest" json:"dest"`
	Options OptionsSpec `yaml:"options,omitempty" json:"options,omitempty"`
}

type MatchSpec struct {
	Ext      []string `yaml:"ext,omitempty" json:"ext,omitempty"`
	NameLike []string `yaml:"name_like,omitempty" json:"name_like,omitempty"`
}

type OptionsSpec struct {
	Conflict string `yaml:"conflict,omitempty" json:"conflict,omitempty"`
}

// DefaultRulesYAML routes the labels the built-in classifier produces.
const DefaultRulesYAML = `rules:
  - name: photos_by_date
    match:
      ext: [".jpg", ".jpeg", ".png", ".heic"]
    dest: "Photos/{year}/{month}"
    options:
      conflict: rename
  - name: receipts_pdf
    match:
      ext: [".pdf"]
      name_like: ["receipt", "invoice"]
    dest: "Documents/Receipts/{year}"
    options:
      conflict: rename
  - name: media_by_tag
    match:
      ext: [".mp3", ".m4a", ".flac", ".mp4", ".mkv", ".mov"]
    dest: "Media/{ext}"
    options:
      conflict: skip
`
