package realm

// prelude defines the browser classes the Go bindings hang their objects
// off. Node objects get these prototypes so instanceof checks work.
const prelude = `(function (g) {
  class DOMException extends Error {
    constructor(message, name) {
      super(message);
      this.name = name || "Error";
    }
  }

  class Event {
    constructor(type, init) {
      if (arguments.length === 0) {
        throw new TypeError("Failed to construct 'Event': 1 argument required, but only 0 present.");
      }
      init = init || {};
      this.type = String(type);
      this.bubbles = !!init.bubbles;
      this.cancelable = !!init.cancelable;
      this.composed = !!init.composed;
      this.defaultPrevented = false;
      this.target = null;
      this.srcElement = null;
      this.currentTarget = null;
      this.eventPhase = 0;
      this.isTrusted = false;
      this.cancelBubble = false;
      this.timeStamp = Date.now();
      Object.defineProperty(this, "__stopImmediate", { value: false, writable: true });
    }
    initEvent(type, bubbles, cancelable) {
      this.type = String(type);
      this.bubbles = !!bubbles;
      this.cancelable = !!cancelable;
    }
    preventDefault() {
      if (this.cancelable) this.defaultPrevented = true;
    }
    stopPropagation() {
      this.cancelBubble = true;
    }
    stopImmediatePropagation() {
      this.cancelBubble = true;
      this.__stopImmediate = true;
    }
    composedPath() {
      return this.target ? [this.target] : [];
    }
  }

  class CustomEvent extends Event {
    constructor(type, init) {
      super(type, init);
      this.detail = init && init.detail !== undefined ? init.detail : null;
    }
    initCustomEvent(type, bubbles, cancelable, detail) {
      this.initEvent(type, bubbles, cancelable);
      this.detail = detail === undefined ? null : detail;
    }
  }

  class EventTarget {}
  class Node extends EventTarget {}
  const types = {
    ELEMENT_NODE: 1, ATTRIBUTE_NODE: 2, TEXT_NODE: 3, CDATA_SECTION_NODE: 4,
    PROCESSING_INSTRUCTION_NODE: 7, COMMENT_NODE: 8, DOCUMENT_NODE: 9,
    DOCUMENT_TYPE_NODE: 10, DOCUMENT_FRAGMENT_NODE: 11
  };
  for (const k in types) {
    Node[k] = types[k];
    Node.prototype[k] = types[k];
  }
  class Element extends Node {}
  class HTMLElement extends Element {}
  class SVGElement extends Element {}
  class CharacterData extends Node {}
  class Text extends CharacterData {}
  class Comment extends CharacterData {}
  class Document extends Node {}
  class HTMLDocument extends Document {}
  class DocumentFragment extends Node {}
  class DocumentType extends Node {}

  Object.assign(g, {
    DOMException, Event, CustomEvent, EventTarget, Node, Element, HTMLElement,
    SVGElement, CharacterData, Text, Comment, Document, HTMLDocument,
    DocumentFragment, DocumentType
  });

  g.queueMicrotask = function (cb) {
    Promise.resolve().then(cb);
  };

  g.matchMedia = function (media) {
    const noop = function () {};
    return {
      matches: false, media: String(media), onchange: null,
      addListener: noop, removeListener: noop,
      addEventListener: noop, removeEventListener: noop,
      dispatchEvent: function () { return false; }
    };
  };

  g.getComputedStyle = function (el) {
    return el && el.style ? el.style : {};
  };
})(globalThis);
`
