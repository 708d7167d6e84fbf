package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/cwbudde/algo-synth/analysis"
	"github.com/cwbudde/algo-synth/internal/audioio"
	"github.com/cwbudde/algo-synth/preset"
	"github.com/cwbudde/algo-synth/synth"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type timedMessage struct {
	frame int
	msg   midi.Message
}

func main() {
	note := flag.Int("note", 69, "MIDI note number (69 = A4 = 440 Hz)")
	velocity := flag.Int("velocity", 100, "MIDI velocity (1-127)")
	duration := flag.Float64("duration", 2.0, "Duration in seconds")
	releaseAfter := flag.Float64("release-after", 1.5, "Send NoteOff after this many seconds (negative keeps the note held)")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	mode := flag.String("mode", "", "Play mode override: voice, pulse, noise or sine")
	midiPath := flag.String("midi", "", "Standard MIDI file to render instead of a single note")
	tail := flag.Float64("tail", 1.0, "Extra seconds rendered after the last MIDI event")
	roomSize := flag.Float64("room-size", -1, "Synthetic room IR length in seconds (overrides preset when >= 0)")
	roomWet := flag.Float64("room-wet", -1, "Room wet mix [0,1] (overrides preset when >= 0)")
	block := flag.Int("block", 100, "Host block size in frames")
	output := flag.String("output", "output.wav", "Output WAV file path")
	reference := flag.String("reference", "", "Reference WAV to compare the render against (optional)")
	report := flag.Bool("report", false, "Print level and pitch analysis of the render")
	jsonOut := flag.Bool("json", false, "Print comparison metrics as JSON")
	flag.Parse()

	cfg := synth.NewDefaultConfig()
	if *presetPath != "" {
		var err error
		cfg, err = preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
	}
	if *mode != "" {
		m, ok := synth.ParsePlayMode(*mode)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown mode %q\n", *mode)
			os.Exit(1)
		}
		cfg.SetValue(synth.ParamMode, m.Value())
	}
	if *roomSize >= 0 {
		cfg.RoomSize = float32(*roomSize)
	}
	if *roomWet >= 0 {
		cfg.RoomWetMix = float32(min(*roomWet, 1))
	}
	if *block < 1 {
		*block = 1
	}

	e := synth.NewEngine(*sampleRate, cfg)
	if err := e.RoomError(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (room bypassed)\n", err)
	}

	var events []timedMessage
	var totalFrames int
	if *midiPath != "" {
		var err error
		events, err = readMIDIFile(*midiPath, *sampleRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading MIDI file %q: %v\n", *midiPath, err)
			os.Exit(1)
		}
		last := 0
		if len(events) > 0 {
			last = events[len(events)-1].frame
		}
		totalFrames = last + int(*tail*float64(*sampleRate))
		fmt.Printf("Rendering %d MIDI events from %s at %d Hz (mode: %s)...\n", len(events), *midiPath, *sampleRate, e.Mode())
	} else {
		if *velocity < 1 || *velocity > 127 || *note < 0 || *note > 127 {
			fmt.Fprintf(os.Stderr, "Error: note and velocity must be in range (note=%d velocity=%d)\n", *note, *velocity)
			os.Exit(1)
		}
		totalFrames = int(float64(*sampleRate) * (*duration))
		events = append(events, timedMessage{frame: 0, msg: midi.NoteOn(0, uint8(*note), uint8(*velocity))})
		if *releaseAfter >= 0 {
			events = append(events, timedMessage{
				frame: int(*releaseAfter * float64(*sampleRate)),
				msg:   midi.NoteOff(0, uint8(*note)),
			})
		}
		fmt.Printf("Rendering note %d, velocity %d, for %.2f seconds at %d Hz (mode: %s)...\n", *note, *velocity, *duration, *sampleRate, e.Mode())
	}
	if totalFrames < 1 {
		totalFrames = 1
	}

	samples := render(e, events, totalFrames, *block)

	if err := audioio.WriteStereoWAV(*output, samples, *sampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully wrote %s (%d frames)\n", *output, totalFrames)

	mono := audioio.StereoToMono(samples)
	if *report {
		fmt.Printf("Peak:        %.1f dBFS\n", analysis.PeakDB(mono))
		fmt.Printf("RMS:         %.4f\n", audioio.RMS(samples))
		fmt.Printf("Fundamental: %.2f Hz\n", analysis.EstimateFundamental(mono, *sampleRate))
	}

	if *reference != "" {
		ref, refSR, err := audioio.ReadMonoWAV(*reference)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading reference: %v\n", err)
			os.Exit(1)
		}
		ref, err = audioio.Resample64(ref, refSR, *sampleRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resampling reference: %v\n", err)
			os.Exit(1)
		}
		metrics := analysis.Compare(ref, mono, *sampleRate)
		if *jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(metrics); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding metrics: %v\n", err)
				os.Exit(1)
			}
			return
		}
		fmt.Printf("Lag:         %d samples\n", metrics.LagSamples)
		fmt.Printf("Pitch:       %.2f Hz vs %.2f Hz (%+.1f cents)\n", metrics.CandPitchHz, metrics.RefPitchHz, metrics.PitchErrorCents)
		fmt.Printf("Decay:       %.3f s vs %.3f s\n", metrics.CandDecayS, metrics.RefDecayS)
		fmt.Printf("Score:       %.4f  (0 best, 1 worst, dominant: %s)\n", metrics.Score, metrics.Dominant)
		fmt.Printf("Similarity:  %.2f%%\n", metrics.Similarity*100.0)
	}
}

// render drives e in host blocks of blockSize frames, delivering each event
// at its offset inside the block that contains it.
func render(e *synth.Engine, events []timedMessage, totalFrames int, blockSize int) []float32 {
	left := make([]float32, totalFrames)
	right := make([]float32, totalFrames)
	next := 0
	for pos := 0; pos < totalFrames; pos += blockSize {
		n := blockSize
		if pos+n > totalFrames {
			n = totalFrames - pos
		}
		for next < len(events) && events[next].frame < pos+n {
			offset := events[next].frame - pos
			if offset < 0 {
				offset = 0
			}
			e.ScheduleMessage(events[next].msg, offset)
			next++
		}
		e.Process([][]float32{left[pos : pos+n], right[pos : pos+n]})
	}

	out := make([]float32, totalFrames*2)
	for i := range left {
		out[i*2] = left[i]
		out[i*2+1] = right[i]
	}
	return out
}

func readMIDIFile(path string, sampleRate int) ([]timedMessage, error) {
	var events []timedMessage
	rd := smf.ReadTracks(path).Do(func(te smf.TrackEvent) {
		msg := midi.Message(te.Message)
		var ch, key, vel, ctrl, val uint8
		if !msg.GetNoteStart(&ch, &key, &vel) && !msg.GetNoteEnd(&ch, &key) && !msg.GetControlChange(&ch, &ctrl, &val) {
			return
		}
		frame := int(float64(te.AbsMicroSeconds) * float64(sampleRate) / 1e6)
		events = append(events, timedMessage{frame: frame, msg: msg})
	})
	if err := rd.Error(); err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].frame < events[j].frame })
	return events, nil
}
