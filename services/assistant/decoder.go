package assistant

import (
	"encoding/json"
	"io"
	"strings"
)

// FallbackReply is returned when a stream carried no decodable payload.
const FallbackReply = "No response from assistant"

// textRecordPrefix marks the records of the gateway stream that carry a
// JSON-encoded string fragment of the reply. Every other record kind
// (metadata, tool events, finish markers) is skipped.
const textRecordPrefix = "0:"

// ReplyDecoder reassembles one reply string from the gateway's chunked,
// line-delimited stream. Chunk boundaries carry no meaning: a record may be
// split across chunks, so incomplete lines are buffered until their newline
// arrives. Malformed records are skipped, never an error.
type ReplyDecoder struct {
	pending strings.Builder
	reply   strings.Builder
}

// Feed consumes one chunk of stream text.
func (d *ReplyDecoder) Feed(chunk string) {
	for {
		nl := strings.IndexByte(chunk, '\n')
		if nl < 0 {
			d.pending.WriteString(chunk)
			return
		}
		d.pending.WriteString(chunk[:nl])
		d.consumeRecord(d.pending.String())
		d.pending.Reset()
		chunk = chunk[nl+1:]
	}
}

// Finish flushes a trailing unterminated record and returns the accumulated
// reply, or the fixed fallback when nothing was decoded.
func (d *ReplyDecoder) Finish() string {
	if d.pending.Len() > 0 {
		d.consumeRecord(d.pending.String())
		d.pending.Reset()
	}
	if d.reply.Len() == 0 {
		return FallbackReply
	}
	return d.reply.String()
}

func (d *ReplyDecoder) consumeRecord(record string) {
	record = strings.TrimSuffix(record, "\r")
	if !strings.HasPrefix(record, textRecordPrefix) {
		return
	}
	var fragment string
	if err := json.Unmarshal([]byte(record[len(textRecordPrefix):]), &fragment); err != nil {
		return
	}
	d.reply.WriteString(fragment)
}

// DecodeReply drains r through a ReplyDecoder and returns the final reply.
func DecodeReply(r io.Reader) (string, error) {
	var d ReplyDecoder
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			d.Feed(string(buf[:n]))
		}
		if err == io.EOF {
			return d.Finish(), nil
		}
		if err != nil {
			return "", err
		}
	}
}
