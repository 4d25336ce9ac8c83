package audiobuf

// WAV framing for the STT boundary. The buffer holds bare PCM; the
// transcription service wants a complete file.

const (
	wavHeaderSize = 44
	numChannels   = 1  // mono
	bitsPerSample = 16 // 16-bit PCM
)

// BuildWAV wraps raw 16-bit mono PCM in a WAV container.
func BuildWAV(pcm []byte, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = 44100
	}

	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	totalSize := wavHeaderSize + len(pcm)

	header := make([]byte, wavHeaderSize)

	copy(header[0:4], "RIFF")
	writeUint32LE(header[4:8], uint32(totalSize-8))
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	writeUint32LE(header[16:20], 16) // PCM format chunk size
	writeUint16LE(header[20:22], 1)  // PCM format
	writeUint16LE(header[22:24], uint16(numChannels))
	writeUint32LE(header[24:28], uint32(sampleRate))
	writeUint32LE(header[28:32], uint32(byteRate))
	writeUint16LE(header[32:34], uint16(blockAlign))
	writeUint16LE(header[34:36], uint16(bitsPerSample))

	copy(header[36:40], "data")
	writeUint32LE(header[40:44], uint32(len(pcm)))

	out := make([]byte, 0, totalSize)
	out = append(out, header...)
	out = append(out, pcm...)
	return out
}

func writeUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func writeUint16LE(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}
