package convert

// Format classes drive the dispatcher's ordered rules.

var mediaFormats = map[string]bool{
	"mp4": true, "mov": true, "avi": true, "mkv": true,
	"mp3": true, "wav": true, "ogg": true,
}

var audioFormats = map[string]bool{
	"mp3": true, "wav": true, "ogg": true,
}

var imageFormats = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "webp": true,
}

var ocrSourceFormats = map[string]bool{
	"pdf": true, "jpg": true, "jpeg": true, "png": true,
}

// allowedUploads is the accepted input surface: everything a strategy can
// read plus common text and document types that ride the copy fallback.
var allowedUploads = map[string]bool{
	"mp4": true, "mov": true, "avi": true, "mkv": true, "webm": true,
	"mp3": true, "wav": true, "ogg": true, "m4a": true, "aac": true, "flac": true,
	"jpg": true, "jpeg": true, "png": true, "webp": true, "gif": true, "bmp": true, "tiff": true,
	"pdf": true, "docx": true, "doc": true, "rtf": true,
	"txt": true, "csv": true, "json": true, "xml": true, "md": true, "html": true,
}

// IsAllowedUpload reports whether files with the given extension are
// accepted at the upload boundary.
func IsAllowedUpload(format string) bool {
	return allowedUploads[format]
}

var contentTypes = map[string]string{
	"mp4":  "video/mp4",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"csv":  "text/csv",
	"json": "application/json",
	"xml":  "application/xml",
}

// ContentType maps a target format to its response MIME type, falling back
// to a generic octet stream.
func ContentType(format string) string {
	if ct, ok := contentTypes[format]; ok {
		return ct
	}
	return "application/octet-stream"
}
