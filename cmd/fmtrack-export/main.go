package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fmtrack/fmtrack"
	"github.com/fmtrack/fmtrack/opl"
	"github.com/fmtrack/fmtrack/oto"
	"github.com/fmtrack/fmtrack/version"
)

func main() {
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the same directory where the original song file is.")
	play := flag.Bool("p", false, "Play the rendered songs (default behaviour when no other output is defined).")
	rawOut := flag.Bool("r", false, "Output the rendered song as .raw file (stereo 16-bit LE).")
	wavOut := flag.Bool("w", false, "Output the rendered song as .wav file.")
	midOut := flag.Bool("m", false, "Output the compiled timeline as .mid file.")
	loops := flag.Int("l", 1, "Number of times the pattern is repeated in the output.")
	seamless := flag.Bool("seamless", false, "Render with borrowed lead-in/lead-out context and extract the seamlessly loopable core.")
	contextRows := flag.Int("context", fmtrack.DefaultContextRows, "Rows of borrowed context for seamless renders.")
	trim := flag.Bool("trim", false, "Trim trailing silence below -60 dBFS (non-seamless renders only).")
	normalize := flag.Bool("normalize", false, "Normalize the rendered audio to -1 dBFS peak.")
	fadeOut := flag.Float64("fadeout", 0, "Apply a linear fade-out of the given length in seconds.")
	quiet := flag.Bool("q", false, "Do not print render progress.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*rawOut && !*wavOut && !*midOut {
		*play = true // if the user gives nothing to output, then the default behaviour is just to play the file
	}
	var audioContext *oto.Context
	if *play {
		var err error
		audioContext, err = oto.NewContext()
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not acquire audio output: %v\n", err)
			os.Exit(1)
		}
	}
	process := func(filename string) error {
		output := func(extension string, contents []byte) error {
			if *stdout {
				os.Stdout.Write(contents)
				return nil
			}
			dir, name := filepath.Split(filename)
			if *directory != "" {
				dir = *directory
			}
			name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
			f := filepath.Join(dir, name)
			if dir != "" {
				if err := os.MkdirAll(dir, os.ModePerm); err != nil {
					return fmt.Errorf("could not create output directory %v: %v", dir, err)
				}
			}
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %v", f, err)
			}
			return nil
		}
		inputBytes, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("could not read file %v: %v", filename, err)
		}
		var song fmtrack.Song
		if errJSON := json.Unmarshal(inputBytes, &song); errJSON != nil {
			if errYaml := yaml.Unmarshal(inputBytes, &song); errYaml != nil {
				return fmt.Errorf("the song could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
			}
		}
		if *midOut {
			timeline, err := song.Timeline(*loops)
			if err != nil {
				return fmt.Errorf("compiling timeline failed: %v", err)
			}
			var buf bytes.Buffer
			if err := timeline.WriteSMF(&buf, song.BPM); err != nil {
				return fmt.Errorf("could not generate .mid file: %v", err)
			}
			if err := output(".mid", buf.Bytes()); err != nil {
				return fmt.Errorf("error outputting .mid file: %v", err)
			}
		}
		if !*rawOut && !*wavOut && !*play {
			return nil
		}
		// NullChip renders timing-accurate silence; link a real chip
		// emulator behind fmtrack.Chip for audible output.
		driver, err := opl.NewDriver(fmtrack.NullChip{})
		if err != nil {
			return err
		}
		opt := fmtrack.RenderOptions{
			LoopCount:    *loops,
			SeamlessLoop: *seamless,
			ContextRows:  *contextRows,
		}
		if !*quiet {
			opt.Progress = func(fraction float64, message string) {
				fmt.Fprintf(os.Stderr, "\r%3.0f%% %s", fraction*100, message)
			}
		}
		buffer, err := fmtrack.RenderSong(context.Background(), driver, &song, opt)
		if !*quiet {
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return fmt.Errorf("render failed: %v", err)
		}
		if *trim && !*seamless {
			buffer = buffer.TrimTrailingSilence(-60)
		}
		if *normalize {
			buffer.Normalize(0.89) // -1 dBFS
		}
		if *fadeOut > 0 {
			buffer.FadeOut(*fadeOut)
		}
		if *rawOut {
			raw, err := buffer.Raw()
			if err != nil {
				return fmt.Errorf("could not generate .raw file: %v", err)
			}
			if err := output(".raw", raw); err != nil {
				return fmt.Errorf("error outputting .raw file: %v", err)
			}
		}
		if *wavOut {
			wav, err := buffer.Wav()
			if err != nil {
				return fmt.Errorf("could not generate .wav file: %v", err)
			}
			if err := output(".wav", wav); err != nil {
				return fmt.Errorf("error outputting .wav file: %v", err)
			}
		}
		if *play {
			player, err := audioContext.Play(buffer)
			if err != nil {
				return fmt.Errorf("could not play the rendered song: %v", err)
			}
			player.Wait()
			player.Close()
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			jsonfiles, err := filepath.Glob(filepath.Join(param, "*.json"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for json files: %v\n", param, err)
				retval = 1
				continue
			}
			ymlfiles, err := filepath.Glob(filepath.Join(param, "*.yml"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for yml files: %v\n", param, err)
				retval = 1
				continue
			}
			for _, file := range append(ymlfiles, jsonfiles...) {
				if err := process(file); err != nil {
					fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
					retval = 1
				}
			}
		} else {
			if err := process(param); err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
				retval = 1
			}
		}
	}
	os.Exit(retval)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "fmtrack command line utility for rendering .yml/.json song files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
