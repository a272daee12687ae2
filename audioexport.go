package fmtrack

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Wav serializes the buffer as a 16-bit PCM stereo RIFF/WAVE file at the
// buffer's sample rate.
func (b *RenderBuffer) Wav() ([]byte, error) {
	buf := new(bytes.Buffer)
	wavHeader(b.Len(), b.SampleRate, buf)
	if err := rawToBuffer(b, buf); err != nil {
		return nil, fmt.Errorf("Wav failed: %v", err)
	}
	return buf.Bytes(), nil
}

// Raw serializes the buffer as interleaved 16-bit little-endian stereo
// samples with no container.
func (b *RenderBuffer) Raw() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := rawToBuffer(b, buf); err != nil {
		return nil, fmt.Errorf("Raw failed: %v", err)
	}
	return buf.Bytes(), nil
}

func rawToBuffer(b *RenderBuffer, buf *bytes.Buffer) error {
	interleaved := make([]int16, 2*b.Len())
	for i := 0; i < b.Len(); i++ {
		interleaved[2*i] = b.Left[i]
		interleaved[2*i+1] = b.Right[i]
	}
	if err := binary.Write(buf, binary.LittleEndian, interleaved); err != nil {
		return fmt.Errorf("could not binary write data to binary buffer: %v", err)
	}
	return nil
}

// wavHeader writes a wave header for 16-bit stereo PCM of the given length
// (in stereo sample pairs) into the buffer.
func wavHeader(numSamples, sampleRate int, buf *bytes.Buffer) {
	// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
	const numChannels = 2
	const bytesPerSample = 2
	dataSize := numSamples * numChannels * bytesPerSample
	buf.Write([]byte("RIFF"))
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.Write([]byte("WAVE"))
	buf.Write([]byte("fmt "))
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*numChannels*bytesPerSample)) // avgBytesPerSec
	binary.Write(buf, binary.LittleEndian, uint16(numChannels*bytesPerSample))            // blockAlign
	binary.Write(buf, binary.LittleEndian, uint16(8*bytesPerSample))                      // bits per sample
	buf.Write([]byte("data"))
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
}
