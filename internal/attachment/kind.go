package attachment

// Kind groups file extensions for display.
type Kind string

const (
	KindPDF          Kind = "pdf"
	KindDocument     Kind = "document"
	KindSpreadsheet  Kind = "spreadsheet"
	KindPresentation Kind = "presentation"
	KindText         Kind = "text"
	KindCode         Kind = "code"
	KindCSV          Kind = "csv"
	KindImage        Kind = "image"
	KindArchive      Kind = "archive"
	KindAudio        Kind = "audio"
	KindVideo        Kind = "video"
	KindFile         Kind = "file"
)

var kindByExtension = map[string]Kind{
	"pdf":  KindPDF,
	"doc":  KindDocument,
	"docx": KindDocument,
	"xls":  KindSpreadsheet,
	"xlsx": KindSpreadsheet,
	"ppt":  KindPresentation,
	"pptx": KindPresentation,
	"txt":  KindText,
	"log":  KindText,
	"asc":  KindCode,
	"sig":  KindCode,
	"gpg":  KindCode,
	"pgp":  KindCode,
	"json": KindCode,
	"xml":  KindCode,
	"csv":  KindCSV,
	"jpg":  KindImage,
	"jpeg": KindImage,
	"png":  KindImage,
	"gif":  KindImage,
	"zip":  KindArchive,
	"rar":  KindArchive,
	"mp3":  KindAudio,
	"mp4":  KindVideo,
	"avi":  KindVideo,
}

var iconByKind = map[Kind]string{
	KindPDF:          "📕",
	KindDocument:     "📝",
	KindSpreadsheet:  "📊",
	KindPresentation: "📽",
	KindText:         "📄",
	KindCode:         "🔏",
	KindCSV:          "📈",
	KindImage:        "🖼",
	KindArchive:      "🗜",
	KindAudio:        "🎵",
	KindVideo:        "🎞",
	KindFile:         "📎",
}

// KindOf classifies filename by extension.
func KindOf(filename string) Kind {
	if k, ok := kindByExtension[Extension(filename)]; ok {
		return k
	}
	return KindFile
}

// Icon returns a glyph for the attachment list.
func (k Kind) Icon() string {
	if icon, ok := iconByKind[k]; ok {
		return icon
	}
	return iconByKind[KindFile]
}
