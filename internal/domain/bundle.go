package domain

// ContentText tags a bundle file whose payload is plain text.
const ContentText = "text"

// Bundle is the JSON document uploaded as the app's source artifact.
type Bundle struct {
	Requirements []string        `json:"requirements"`
	Entrypoint   string          `json:"entrypoint"`
	Files        map[string]File `json:"files"`
}

type File struct {
	Content FileContent `json:"content"`
}

type FileContent struct {
	Case string `json:"$case"`
	Text string `json:"text"`
}

func TextFile(text string) File {
	return File{Content: FileContent{Case: ContentText, Text: text}}
}
