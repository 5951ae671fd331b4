package recognition

import (
	"bytes"
	"time"

	"github.com/go-audio/wav"
)

type clipInfo struct {
	ext      string
	duration time.Duration // 仅 WAV 可知，否则为 0
}

// sniffClip 根据内容判断上传片段的格式，用于给临时文件取扩展名
func sniffClip(data []byte) clipInfo {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if dec.IsValidFile() {
		info := clipInfo{ext: ".wav"}
		if err := dec.FwdToPCM(); err == nil {
			bytesPerSec := int64(dec.SampleRate) * int64(dec.NumChans) * int64(dec.BitDepth) / 8
			if bytesPerSec > 0 {
				info.duration = time.Duration(dec.PCMLen() * int64(time.Second) / bytesPerSec)
			}
		}
		return info
	}
	switch {
	case bytes.HasPrefix(data, []byte("ID3")), len(data) > 1 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return clipInfo{ext: ".mp3"}
	case bytes.HasPrefix(data, []byte("OggS")):
		return clipInfo{ext: ".ogg"}
	case bytes.HasPrefix(data, []byte("fLaC")):
		return clipInfo{ext: ".flac"}
	case len(data) > 12 && bytes.Equal(data[4:8], []byte("ftyp")):
		return clipInfo{ext: ".m4a"}
	case bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return clipInfo{ext: ".webm"}
	default:
		return clipInfo{ext: ".bin"}
	}
}
