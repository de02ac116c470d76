/*
 * Copyright (c) 2020 Siemens AG
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of
 * this software and associated documentation files (the "Software"), to deal in
 * the Software without restriction, including without limitation the rights to
 * use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
 * the Software, and to permit persons to whom the Software is furnished to do so,
 * subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
 * FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
 * COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 * Author(s): Jonas Plum
 */

// Package droidtimeline builds investigator timelines from forensic
// extractions of Android devices.
//
// Projects
//
// A project is a directory holding the output of the acquisition step below
// extract and everything this package derives from it below processed_data:
//     case01/
//     ├── extract
//     │   ├── apps_data
//     │   │   └── org.telegram.messenger/...
//     │   ├── media
//     │   │   └── sdcard/...
//     │   ├── network
//     │   │   └── capture.pcap
//     │   └── other
//     │       └── important_databases
//     │           ├── calendar.db
//     │           ├── calllog.db
//     │           ├── contacts2.db
//     │           └── mmssms.db
//     └── processed_data
//         ├── apps
//         │   └── org.telegram.messenger
//         │       ├── dialogues.json
//         │       └── timeline.csv
//         ├── timeline
//         │   ├── app_activity/timeline.csv
//         │   ├── ...
//         │   └── combined/timeline.csv
//         └── report.json
//
// Processing
//
// Process runs every source extractor and the selected app parsers in
// parallel. Once all of them returned, the app records are aggregated into
// AppActivity events, all events are fused and the timelines are written. A
// failing source never stops the others; its outcome is recorded in
// report.json and its timeline file is not written.
package droidtimeline
