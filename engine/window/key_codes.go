package window

// Virtual key codes delivered to key callbacks. Values match GLFW key
// tokens, which follow ASCII for printable keys.
const (
	KeySpace uint32 = 32
	KeyG     uint32 = 71
	KeyP     uint32 = 80
	KeyR     uint32 = 82
	KeyS     uint32 = 83

	KeyEscape uint32 = 256
	KeyUp     uint32 = 265
	KeyDown   uint32 = 264
	KeyLeft   uint32 = 263
	KeyRight  uint32 = 262
)
